package instagram

// Graph API wire types. Only the fields the backend reads are declared.

type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption,omitempty"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	Username     string `json:"username,omitempty"`
}

type mediaListResponse struct {
	Data  []Media   `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type captionResponse struct {
	Caption string    `json:"caption"`
	Error   *apiError `json:"error,omitempty"`
}

type replyResponse struct {
	ID    string    `json:"id"`
	Error *apiError `json:"error,omitempty"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Error       *apiError `json:"error,omitempty"`
}

type pagesResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type businessAccountResponse struct {
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}
