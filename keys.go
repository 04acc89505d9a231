package goSession

import "context"

// signingKey resolves the secret for one sign or verify call. A non-empty
// override in the SecretSource wins over Token.Secret, so rotating the
// setting takes effect on the next request.
func (m *Manager) signingKey(ctx context.Context) ([]byte, error) {
	name := m.config.Token.SecretSettingName
	if m.secrets != nil && name != "" {
		value, ok, err := m.secrets.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return []byte(value), nil
		}
	}
	return m.config.Token.Secret, nil
}
