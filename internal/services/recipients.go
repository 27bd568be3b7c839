package services

import (
	"context"
	"strings"
)

// validEmail is a deliberately loose check: the tracker already
// validated the address, we only filter out placeholders.
func validEmail(mail string) bool {
	return strings.Contains(mail, "@")
}

// ResolveRecipients walks the recipient fallback chain for a report
// type: explicit override, configured list, tracker user emails, then
// the configured fallback address. The result is deduplicated and never
// empty unless every source is.
func (s *Service) ResolveRecipients(ctx context.Context, reportType int, override []string) []string {
	list := dedupe(override)
	if len(list) > 0 { return list }
	if list = dedupe(s.cfg.Recipients(reportType)); len(list) > 0 { return list }
	users := s.ListUsers(ctx)
	for _, u := range users {
		if validEmail(u.Mail) { list = append(list, u.Mail) }
	}
	if list = dedupe(list); len(list) > 0 { return list }
	if s.cfg.FallbackRecipient != "" {
		s.log.Warn().Int("report", reportType).Str("fallback", s.cfg.FallbackRecipient).Msg("no recipients resolved, using fallback")
		return []string{s.cfg.FallbackRecipient}
	}
	return nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" { continue }
		if _, ok := seen[v]; ok { continue }
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
