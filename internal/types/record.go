package types

// Student is one row of the student roster export.
type Student struct {
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Course    string `json:"course"`
	Code      string `json:"code"`
}

// Management is one row of the management roster export.
type Management struct {
	Name     string `json:"name"`
	MgmtID   string `json:"mgmt_id"`
	Email    string `json:"email"`
	Course   string `json:"course"`
	Position string `json:"position"`
}
