package models

// HistoryRecord is one past transformation as the backend stores it. The
// gateway holds a read-only copy for the duration of the history view; image
// fields are normalized to displayable data URIs on receipt.
type HistoryRecord struct {
	ID               int64  `json:"id"`
	Style            string `json:"style"`
	OriginalImage    string `json:"original_image"`
	TransformedImage string `json:"transformed_image"`
	CreatedAt        string `json:"created_at"`
}
