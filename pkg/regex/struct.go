package regex

import "github.com/dlclark/regexp2"

type Pattern struct {
	Expression *regexp2.Regexp
}
