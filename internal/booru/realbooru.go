package booru

import "booru-dl/internal/model"

const realbooruBaseURL = "https://realbooru.com"

func init() { Register(gelbooruEngine{site: model.SiteRealbooru, baseURL: realbooruBaseURL}) }
