package model

// Review is a raw review record as returned by the remote page source.
type Review struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	AvatarURL  string   `json:"avatar_url"`
	PhotosURLs []string `json:"photos_urls,omitempty"`
	Rating     int      `json:"rating"`
	Text       string   `json:"text"`
	Created    string   `json:"created"`
}

// Page is one response of the page source.
// Items is cumulative: it may repeat records the client already holds.
// Count is the authoritative total number of reviews.
type Page struct {
	Items []Review `json:"items"`
	Count int      `json:"count"`
}
