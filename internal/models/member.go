package models

// Member identifies a chat participant. It is supplied by the
// authenticated session lookup and never changes for the lifetime of a
// chat session.
type Member struct {
	MemberID   string `json:"memberId"`
	Name       string `json:"name"`
	ProfileRef string `json:"profile"`
}
