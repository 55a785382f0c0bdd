package client

import (
	"net/url"

	"github.com/bobesa/go-domain-util/domainutil"
)

func parseTrackerDomain(announce string) string {
	if announce == "" {
		return ""
	}

	u, err := url.Parse(announce)
	if err != nil {
		return ""
	}

	if domain := domainutil.Domain(u.Hostname()); domain != "" {
		return domain
	}

	return u.Hostname()
}
