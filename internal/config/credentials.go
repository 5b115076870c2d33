package config

// Credentials are the portal login. They live for a single run and are never persisted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String keeps the password out of logs and error messages.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: [redacted]}"
}

// Validate reports the first empty field.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return &ConfigurationError{Key: "username"}
	}
	if c.Password == "" {
		return &ConfigurationError{Key: "password"}
	}
	return nil
}

// LoadCredentials reads the credential file (keys: username, password).
func LoadCredentials(path string) (Credentials, error) {
	m, err := Load(path)
	if err != nil {
		return Credentials{}, err
	}
	creds := Credentials{Username: m["username"], Password: m["password"]}
	if err := creds.Validate(); err != nil {
		if ce, ok := err.(*ConfigurationError); ok {
			ce.Path = path
		}
		return Credentials{}, err
	}
	return creds, nil
}
