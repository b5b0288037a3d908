package secrets

type ZohoCredentials struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
}

type DatabaseCredentials struct {
	Username string
	Password string
	Host     string
	Port     string
}
