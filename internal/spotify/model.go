package spotify

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type Owner struct {
	ID string `json:"id"`
}

type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

type Playlist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	URI          string       `json:"uri"`
	Owner        Owner        `json:"owner"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL *string  `json:"preview_url"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}
