// Package auth handles credentials around a seeding run.
//
// User tokens are HS256 JWTs whose subject is the user id that owns runs
// in the ledger. The run-status API accepts them as bearer tokens:
//
//	cfg := auth.JWTConfig{Secret: []byte(secret)}
//	token, err := auth.IssueUserToken(cfg, "user-123", "dev@example.com")
//	claims, err := auth.ValidateUserToken(cfg, token)
//
// GitHub OAuth credentials are never stored or logged. Use Fingerprint to
// correlate log lines with a credential:
//
//	logger.Info("publishing", "credential", auth.Fingerprint(token))
package auth
