package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var llmProviders = map[string]bool{"none": true, "openai": true, "gemini": true}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string, lower bool) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			if lower {
				x = key
			}
			ys = append(ys, x)
		}
		return ys
	}

	out.Filters.LocationsAllow = trimList(out.Filters.LocationsAllow, false)
	out.Filters.LocationsBlock = trimList(out.Filters.LocationsBlock, false)
	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny, false)
	out.SMTP.To = trimList(out.SMTP.To, false)
	out.LLM.Provider = strings.ToLower(strings.TrimSpace(out.LLM.Provider))
	out.Roles.Default = strings.ToLower(strings.TrimSpace(out.Roles.Default))

	roles := make([]Role, len(out.Roles.Categories))
	for i, r := range out.Roles.Categories {
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		r.Name = strings.TrimSpace(r.Name)
		r.Keywords = trimList(r.Keywords, true)
		roles[i] = r
	}
	out.Roles.Categories = roles

	// ---- Validation rules ----

	if !out.Email.Enabled && !out.Gmail.Enabled &&
		!out.Sources.LinkedIn.Enabled && !out.Sources.Indeed.Enabled && !out.Sources.Arbetsformedlingen.Enabled &&
		!out.Sources.Greenhouse.Enabled && !out.Sources.Lever.Enabled && !out.Sources.SmartRecruiters.Enabled {
		res.addWarn("no sources enabled; scan will find nothing")
	}

	if !out.Filters.RemoteOK && len(out.Filters.LocationsAllow) == 0 {
		res.addWarn("remote_ok is false and locations_allow is empty; you may filter out almost everything.")
	}

	// password is not required here; it lives in the keychain
	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if out.Email.IMAPPort <= 0 || out.Email.IMAPPort > 65535 {
			res.addErr("email.imap_port must be 1..65535")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if len(out.Email.SearchSubjectAny) == 0 {
			res.addWarn("email.search_subject_any is empty; every unseen message will be parsed.")
		}
	}

	if out.Gmail.Enabled && strings.TrimSpace(out.Gmail.CredentialsFile) == "" {
		res.addErr("gmail.credentials_file is required when gmail.enabled=true")
	}

	for name, b := range map[string]Board{
		"linkedin":           out.Sources.LinkedIn,
		"indeed":             out.Sources.Indeed,
		"arbetsformedlingen": out.Sources.Arbetsformedlingen,
	} {
		if b.Enabled && len(trimList(b.Queries, false)) == 0 {
			res.addErr("sources.%s.queries must not be empty when enabled", name)
		}
	}
	if out.Sources.Greenhouse.Enabled && len(out.Sources.Greenhouse.Companies) == 0 {
		res.addWarn("sources.greenhouse is enabled but has no companies")
	}
	if out.Sources.Lever.Enabled && len(out.Sources.Lever.Companies) == 0 {
		res.addWarn("sources.lever is enabled but has no companies")
	}
	if out.Sources.SmartRecruiters.Enabled && len(out.Sources.SmartRecruiters.Companies) == 0 {
		res.addWarn("sources.smartrecruiters is enabled but has no companies")
	}

	if strings.TrimSpace(out.SMTP.Host) != "" {
		if strings.TrimSpace(out.SMTP.From) == "" {
			res.addErr("smtp.from is required when smtp.host is set")
		}
		if len(out.SMTP.To) == 0 {
			res.addErr("smtp.to needs at least one recipient when smtp.host is set")
		}
	} else {
		res.addWarn("smtp.host is empty; send will be skipped")
	}

	if !llmProviders[out.LLM.Provider] {
		res.addErr("llm.provider must be one of none, openai, gemini (got %q)", out.LLM.Provider)
	} else if out.LLM.Provider != "none" && strings.TrimSpace(out.LLM.Model) == "" {
		res.addWarn("llm.model is empty; the provider default will be used")
	}

	res.Errors = append(res.Errors, scoringErrors(cfg.Scoring)...)
	res.Errors = append(res.Errors, roleErrors(out)...)

	if len(out.Roles.Categories) > 0 && out.Roles.Default == "" {
		res.addWarn("roles.default is empty; jobs without keyword hits use the first role")
	}

	blockSet := map[string]bool{}
	for _, b := range out.Filters.LocationsBlock {
		blockSet[strings.ToLower(b)] = true
	}
	for _, a := range out.Filters.LocationsAllow {
		if blockSet[strings.ToLower(a)] {
			res.addWarn("location appears in both allow and block: %q", a)
		}
	}

	return out, res
}

func roleErrors(cfg Config) []string {
	var errs []string
	if len(cfg.Roles.Categories) == 0 {
		return append(errs, "roles.categories must have at least 1 role")
	}
	seen := map[string]bool{}
	for i, r := range cfg.Roles.Categories {
		key := strings.ToLower(strings.TrimSpace(r.Key))
		if key == "" {
			errs = append(errs, fmt.Sprintf("roles.categories[%d].key is required", i))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Sprintf("roles.categories[%d].key %q is duplicated", i, key))
		}
		seen[key] = true
		if r.Priority <= 0 {
			errs = append(errs, fmt.Sprintf("roles.categories[%d].priority must be > 0", i))
		}
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("roles.categories[%d].keywords must have at least 1 term", i))
		}
	}
	def := strings.ToLower(strings.TrimSpace(cfg.Roles.Default))
	if def != "" && !seen[def] {
		errs = append(errs, fmt.Sprintf("roles.default %q is not a configured role", def))
	}
	return errs
}

func scoringErrors(sc Scoring) []string {
	var errs []string
	if sc.MinScore < 0 {
		errs = append(errs, "scoring.min_score must be >= 0")
	}
	terms := func(name string, i int, any []string) {
		if len(any) == 0 {
			errs = append(errs, fmt.Sprintf("%s[%d].any must have at least 1 term", name, i))
		}
		for j, term := range any {
			if strings.TrimSpace(term) == "" {
				errs = append(errs, fmt.Sprintf("%s[%d].any[%d] cannot be empty", name, i, j))
			}
		}
	}
	for _, set := range []struct {
		name  string
		rules []Rule
	}{
		{"scoring.title_rules", sc.TitleRules},
		{"scoring.keyword_rules", sc.KeywordRules},
	} {
		for i, r := range set.rules {
			if strings.TrimSpace(r.Tag) == "" {
				errs = append(errs, fmt.Sprintf("%s[%d].tag is required", set.name, i))
			}
			terms(set.name, i, r.Any)
		}
	}
	for i, p := range sc.Penalties {
		if strings.TrimSpace(p.Reason) == "" {
			errs = append(errs, fmt.Sprintf("scoring.penalties[%d].reason is required", i))
		}
		terms("scoring.penalties", i, p.Any)
	}
	return errs
}
