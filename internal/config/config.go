/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	TZ       string
	HTTPAddr string

	RedmineURL     string
	RedmineAPIKey  string
	RedmineTimeout time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTimeout time.Duration

	ReportDays        int
	ScheduleCron      string
	FallbackRecipient string

	Report1Subject string
	Report2Subject string
	Report3Subject string

	Report1AutoSend bool
	Report2AutoSend bool
	Report3AutoSend bool

	Report1Recipients []string
	Report2Recipients []string
	Report3Recipients []string

	ReportSpecFile string
	Spec           ReportSpec
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" { return def }
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" { return def }
	i, err := strconv.Atoi(v)
	if err != nil { return def }
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" { return def }
	d, err := time.ParseDuration(v)
	if err != nil { return def }
	return d
}

func boolenv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" { return def }
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil { return def }
	return b
}

func parseStrings(csv string) []string {
	if csv == "" { return nil }
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" { continue }
		out = append(out, p)
	}
	return out
}

func Load() Config {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		TZ:       getenv("TIMEZONE", "Asia/Taipei"),
		HTTPAddr: getenv("HTTP_ADDR", ":3003"),

		RedmineURL:     strings.TrimRight(getenv("REDMINE_URL", "http://localhost:3000"), "/"),
		RedmineAPIKey:  getenv("REDMINE_API_KEY", ""),
		RedmineTimeout: dur("REDMINE_TIMEOUT", 30*time.Second),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     atoi("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		EmailFrom:    getenv("EMAIL_FROM", ""),
		EmailTimeout: dur("EMAIL_TIMEOUT", 60*time.Second),

		ReportDays:        atoi("REPORT_DAYS", 14),
		ScheduleCron:      getenv("SCHEDULE_CRON", "0 8 * * 1"),
		FallbackRecipient: getenv("FALLBACK_RECIPIENT", ""),

		Report1Subject: getenv("REPORT1_SUBJECT", "【Redmine報表】%s - 議題進度統計"),
		Report2Subject: getenv("REPORT2_SUBJECT", "【Redmine報表】%s - 完成日期異動追蹤"),
		Report3Subject: getenv("REPORT3_SUBJECT", "【Redmine報表】%s - 專項用專案統計"),

		Report1AutoSend: boolenv("REPORT1_AUTO_SEND", true),
		Report2AutoSend: boolenv("REPORT2_AUTO_SEND", true),
		Report3AutoSend: boolenv("REPORT3_AUTO_SEND", false),

		Report1Recipients: parseStrings(getenv("REPORT1_RECIPIENTS", "")),
		Report2Recipients: parseStrings(getenv("REPORT2_RECIPIENTS", "")),
		Report3Recipients: parseStrings(getenv("REPORT3_RECIPIENTS", "")),

		ReportSpecFile: getenv("REPORT_SPEC_FILE", "config/report_spec.yaml"),
	}

	// set global timezone if available
	if loc, err := time.LoadLocation(cfg.TZ); err == nil {
		time.Local = loc
	} else {
		log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
	}

	cfg.Spec = LoadReportSpec(cfg.ReportSpecFile)
	return cfg
}

// Validate fails fast on settings without which no report can be built or
// delivered. Called once at startup, before any trigger is accepted.
func (c Config) Validate() error {
	missing := []string{}
	if c.RedmineURL == "" { missing = append(missing, "REDMINE_URL") }
	if c.RedmineAPIKey == "" { missing = append(missing, "REDMINE_API_KEY") }
	if c.SMTPHost == "" { missing = append(missing, "SMTP_HOST") }
	if c.EmailFrom == "" { missing = append(missing, "EMAIL_FROM") }
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Recipients returns the configured override list for a report type, nil
// when the type is unknown or no override is set.
func (c Config) Recipients(reportType int) []string {
	switch reportType {
	case 1:
		return c.Report1Recipients
	case 2:
		return c.Report2Recipients
	case 3:
		return c.Report3Recipients
	}
	return nil
}

func (c Config) Subject(reportType int, date string) string {
	switch reportType {
	case 2:
		return fmt.Sprintf(c.Report2Subject, date)
	case 3:
		return fmt.Sprintf(c.Report3Subject, date)
	default:
		return fmt.Sprintf(c.Report1Subject, date)
	}
}
