package models

// Image is a single catalog image. The metadata row is the source of truth;
// the blob and the index document are derived projections.
type Image struct {
	SID        string `json:"sid"`
	CategoryID string `json:"categoryId"`
	Title      string `json:"title"`
	// ImgPath is the canonical locator: an object-store URL once the image is
	// owned, or transiently an externally-hosted URL awaiting ingestion.
	ImgPath    string `json:"imgPath"`
	Owner      string `json:"owner"`
	DeleteFlag int    `json:"deleteFlag"`
}
