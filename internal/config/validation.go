package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError(describe(err), err)
	}

	if !strings.Contains(c.Afk.NoticeTemplate, "{reason}") {
		return apperrors.NewConfigError("afk.notice_template must contain {reason}", nil)
	}

	seen := make(map[string]struct{}, len(c.Commands.Prefixes))
	for _, p := range c.Commands.Prefixes {
		if strings.ContainsAny(p, " \t\n") {
			return apperrors.NewConfigError(fmt.Sprintf("commands.prefixes: %q contains whitespace", p), nil)
		}
		if _, dup := seen[p]; dup {
			return apperrors.NewConfigError(fmt.Sprintf("commands.prefixes: %q listed twice", p), nil)
		}
		seen[p] = struct{}{}
	}

	return nil
}

// describe turns the first validator failure into "section.field: rule".
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid configuration"
	}

	fe := verrs[0]
	ns := strings.TrimPrefix(fe.Namespace(), "Config.")
	msg := fmt.Sprintf("%s: failed %q", ns, fe.Tag())
	if fe.Param() != "" {
		msg += " (" + fe.Param() + ")"
	}
	if len(verrs) > 1 {
		msg += fmt.Sprintf(" and %d more", len(verrs)-1)
	}
	return msg
}
