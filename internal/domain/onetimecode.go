package domain

// MaxCodeAttempts is how many wrong submissions a code survives. After that
// it is dead until a new one is issued.
const MaxCodeAttempts = 5

// OneTimeCode is the registration code issued to an email address.
// PK: email. ExpiresAt is a Unix timestamp also used as the DynamoDB TTL,
// so stale codes disappear on their own.
type OneTimeCode struct {
	Email     string `json:"email" dynamodbav:"email"`
	Code      string `json:"-" dynamodbav:"code"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
	Consumed  bool   `json:"consumed" dynamodbav:"consumed"`
}
