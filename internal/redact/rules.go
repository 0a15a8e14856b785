package redact

import "regexp"

// Rule matches one category of secret-shaped text.
type Rule struct {
	Category string
	Pattern  *regexp.Regexp
}

// Rules is the fixed, ordered redaction table. Every rule is applied
// exhaustively to each input; provider-specific shapes come before the
// generic assignment rules so a provider key embedded in an assignment
// is attributed to the more specific category first.
//
// Go regexps hold no cursor state between calls, so reusing the compiled
// patterns across goroutines is safe.
var Rules = []Rule{
	{"ANTHROPIC_KEY", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}`)},
	{"OPENAI_KEY", regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9]{20,}\b`)},
	{"GITHUB_TOKEN", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{"GITHUB_PAT", regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{22,}\b`)},
	{"SLACK_TOKEN", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`)},
	{"SLACK_WEBHOOK", regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_\-]+`)},
	{"STRIPE_KEY", regexp.MustCompile(`\b[sp]k_(?:live|test)_[A-Za-z0-9]{16,}\b`)},
	{"AWS_ACCESS_KEY", regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`)},
	{"AWS_SECRET_KEY", regexp.MustCompile(`(?i)\baws_secret_access_key\s*[=:]\s*[A-Za-z0-9/+=]{30,}`)},
	{"GOOGLE_KEY", regexp.MustCompile(`\bAIza[A-Za-z0-9_\-]{30,}`)},
	{"SENDGRID_KEY", regexp.MustCompile(`\bSG\.[A-Za-z0-9_\-]{16,}\.[A-Za-z0-9_\-]{16,}\b`)},
	{"TWILIO_KEY", regexp.MustCompile(`\bSK[0-9a-fA-F]{32}\b`)},
	{"NPM_TOKEN", regexp.MustCompile(`\bnpm_[A-Za-z0-9]{36}\b`)},
	{"DISCORD_WEBHOOK", regexp.MustCompile(`https://(?:discord|discordapp)\.com/api/webhooks/\d+/[A-Za-z0-9_\-]+`)},
	{"DISCORD_TOKEN", regexp.MustCompile(`\b[MNO][A-Za-z0-9_\-]{23}\.[A-Za-z0-9_\-]{6}\.[A-Za-z0-9_\-]{27,}`)},
	{"TELEGRAM_TOKEN", regexp.MustCompile(`\b\d{8,10}:AA[A-Za-z0-9_\-]{30,}`)},
	{"JWT", regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}`)},
	{"BEARER_TOKEN", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/]{16,}=*`)},
	{"AUTH_HEADER", regexp.MustCompile(`(?i)\bauthorization\s*[=:]\s*\S{8,}`)},
	{"PRIVATE_KEY", regexp.MustCompile(`(?s)-----BEGIN[A-Z ]*PRIVATE KEY[A-Z ]*-----.*?-----END[A-Z ]*PRIVATE KEY[A-Z ]*-----`)},
	{"DB_URL", regexp.MustCompile(`\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:@/]+:[^\s@]+@\S+`)},
	{"GENERIC_API_KEY", regexp.MustCompile(`(?i)\b(?:api[_\-]?key|apikey)["']?\s*[=:]\s*["']?[^\s"']{8,}`)},
	{"GENERIC_SECRET", regexp.MustCompile(`(?i)\b(?:client[_\-]?)?secret["']?\s*[=:]\s*["']?[^\s"']{6,}`)},
	{"GENERIC_PASSWORD", regexp.MustCompile(`(?i)\bpass(?:word|wd)?["']?\s*[=:]\s*["']?[^\s"']{4,}`)},
	{"GENERIC_TOKEN", regexp.MustCompile(`(?i)\b(?:access[_\-]?|auth[_\-]?|refresh[_\-]?|session[_\-]?)?token["']?\s*[=:]\s*["']?[^\s"']{8,}`)},
	{"HEX_SECRET", regexp.MustCompile(`\b[0-9a-fA-F]{40,}\b`)},
}
