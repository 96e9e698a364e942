package dto

type AuthRequest struct {
	AccessCode string `json:"access_code"`
}

type CommentRequest struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Author string `json:"author" validate:"max=200"`
}

type DecisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}
