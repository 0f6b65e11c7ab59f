package sanitize

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// Policy names.
const (
	PolicyUGC       = "ugc"
	PolicyStrict    = "strict"
	PolicyAllowList = "allowlist"
)

// Sanitizer strips disallowed markup.
type Sanitizer interface {
	Sanitize(html string) string
}

// Policy is a named bluemonday policy.
type Policy struct {
	name   string
	policy *bluemonday.Policy
}

// UGC allows the formatting, links and images of user generated content.
func UGC() *Policy {
	return &Policy{name: PolicyUGC, policy: bluemonday.UGCPolicy()}
}

// Strict strips every element and keeps text.
func Strict() *Policy {
	return &Policy{name: PolicyStrict, policy: bluemonday.StrictPolicy()}
}

// FromAllowList builds a policy from a validated allow-list.
func FromAllowList(list AllowList) (*Policy, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}

	p := bluemonday.NewPolicy()
	p.AllowElements(list.Elements...)

	for _, rule := range list.Attributes {
		builder := p.AllowAttrs(rule.Names...)
		if len(rule.On) == 0 {
			builder.Globally()
		} else {
			builder.OnElements(rule.On...)
		}
	}

	if len(list.URLSchemes) > 0 {
		p.AllowURLSchemes(list.URLSchemes...)
	}
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(list.AllowRelativeURLs)
	p.RequireNoFollowOnLinks(true)

	return &Policy{name: PolicyAllowList, policy: p}, nil
}

// New resolves a policy by name. file is read only for the allowlist policy.
func New(name, file string) (*Policy, error) {
	switch name {
	case PolicyUGC, "":
		return UGC(), nil
	case PolicyStrict:
		return Strict(), nil
	case PolicyAllowList:
		list, err := LoadAllowList(file)
		if err != nil {
			return nil, err
		}
		return FromAllowList(list)
	default:
		return nil, fmt.Errorf("unknown sanitizer policy %q", name)
	}
}

// Name returns the policy name.
func (p *Policy) Name() string {
	return p.name
}

// Sanitize applies the policy. It is idempotent.
func (p *Policy) Sanitize(html string) string {
	return p.policy.Sanitize(html)
}
