package site

import (
	"errors"
	"regexp"
	"unicode"

	"github.com/vberezan/multitier/internal/util"
)

// domainPattern matches DNS-style names: lowercase alphanumeric labels with
// interior hyphens and at least two dot-separated segments.
var domainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*(\.[a-z0-9\-]+)+$`)

// ValidateDomain checks a fully qualified domain name for a site record.
// The empty string is accepted: domains are optional. Whitespace anywhere in
// the value is rejected before the pattern check to catch the common
// copy-paste typos.
func ValidateDomain(domain string) error {
	if domain == "" {
		return nil
	}
	for _, r := range domain {
		if unicode.IsSpace(r) {
			return errors.New("domain name cannot contain any spaces or tabs")
		}
	}
	if !domainPattern.MatchString(domain) {
		return errors.New("not a valid domain name, ex: example.com")
	}
	return nil
}

// Validate checks the record before it reaches a store. It returns a
// *util.ValidationError listing every violated field, or nil.
func (s *Site) Validate() error {
	verr := util.NewValidationError("invalid site record")

	if err := util.ValidateSlug(s.Slug); err != nil {
		verr.AddField("slug", err.Error())
	}
	if s.Subdomain != "" {
		if err := util.ValidateSlug(s.Subdomain); err != nil {
			verr.AddField("subdomain", err.Error())
		}
	}
	if s.Theme != "" {
		if err := util.ValidateSlug(s.Theme); err != nil {
			verr.AddField("theme", err.Error())
		}
	}
	if err := ValidateDomain(s.Domain); err != nil {
		verr.AddField("domain", err.Error())
	}
	if s.DBPort != 0 {
		if err := util.ValidatePort(s.DBPort); err != nil {
			verr.AddField("dbPort", err.Error())
		}
	}
	if s.Base != "" {
		if err := util.ValidateSlug(s.Base); err != nil {
			verr.AddField("base", err.Error())
		}
		if s.Base == s.Slug {
			verr.AddField("base", "site cannot be its own base")
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
