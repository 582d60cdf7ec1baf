package booru

import "booru-dl/internal/model"

const rule34BaseURL = "https://api.rule34.xxx"

func init() { Register(gelbooruEngine{site: model.SiteRule34, baseURL: rule34BaseURL}) }
