package vk

// Post is one record from a community wall, as returned by wall.get.
// Attachments keep their raw heterogeneous shapes; the media package
// normalizes them into typed buckets.
type Post struct {
	ID          int          `json:"id"`
	Date        int64        `json:"date"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a single raw attachment record. Exactly one of the
// typed pointers is set, matching the Type tag. Kinds without a field
// here are ignored by the classifier.
type Attachment struct {
	Type  string    `json:"type"`
	Photo *Photo    `json:"photo,omitempty"`
	Video *Video    `json:"video,omitempty"`
	Doc   *Document `json:"doc,omitempty"`
	Link  *Link     `json:"link,omitempty"`
}

type Photo struct {
	ID    int64       `json:"id"`
	Sizes []PhotoSize `json:"sizes,omitempty"`

	// Legacy flat fields, present on old posts that predate the sizes list.
	Photo1280 string `json:"photo_1280,omitempty"`
	Photo807  string `json:"photo_807,omitempty"`
	Photo604  string `json:"photo_604,omitempty"`
}

type PhotoSize struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Video struct {
	ID          int64        `json:"id"`
	OwnerID     int64        `json:"owner_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Player      string       `json:"player"`
	Duration    int          `json:"duration"`
	Image       []VideoImage `json:"image,omitempty"`
}

type VideoImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Document struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Size  int64  `json:"size"`
	Ext   string `json:"ext"`
}

type Link struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Photo       *Photo `json:"photo,omitempty"`
}

type apiError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

type wallGetResponse struct {
	Count int    `json:"count"`
	Items []Post `json:"items"`
}

type groupsGetByIDResponse struct {
	Groups []struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"groups"`
}
