package bot

// CredentialSource reports whether a bot's exchange credentials have been
// validated. Credential storage and validation live in an external
// collaborator; only the boolean verdict crosses into the core.
type CredentialSource interface {
	Validated(botID string) bool
}

// CredentialMap is a fixed CredentialSource, mainly for wiring and tests.
type CredentialMap map[string]bool

func (m CredentialMap) Validated(botID string) bool {
	return m[botID]
}
