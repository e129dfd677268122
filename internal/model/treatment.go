package model

type Treatment struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"title" json:"title"`
	Description     string `db:"description" json:"description"`
	DurationMinutes int    `db:"duration_minutes" json:"durationMinutes"`
	Price           string `db:"price" json:"price"`
}

type TreatmentRequest struct {
	Title           string `json:"title" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=1000"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0,max=480"`
	Price           string `json:"price" validate:"max=50"`
}
