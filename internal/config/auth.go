package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
)

// siteCredential is the TOML-decoded shape of one site's entry in the
// auth file.
type siteCredential struct {
	Login  string `toml:"login"`
	APIKey string `toml:"api_key"`
}

// AuthFile is the TOML-decoded shape of the auth file stored alongside
// blacklist.toml.
type AuthFile struct {
	Danbooru  siteCredential `toml:"danbooru"`
	E621      siteCredential `toml:"e621"`
	Rule34    siteCredential `toml:"rule34"`
	Gelbooru  siteCredential `toml:"gelbooru"`
	Konachan  siteCredential `toml:"konachan"`
	Realbooru siteCredential `toml:"realbooru"`
}

// LoadAuth reads path, creating an empty file on first run if absent. A
// missing or empty entry for a site means anonymous access.
func LoadAuth(path string) (map[model.Site]model.Credential, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Infof("auth file %s not found, creating empty", path)
		if err := writeEmptyAuth(path); err != nil {
			return nil, err
		}
		return map[model.Site]model.Credential{}, nil
	}

	var file AuthFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: decoding auth file %s: %v", model.ErrConfig, path, err)
	}

	creds := map[model.Site]model.Credential{
		model.SiteDanbooru:  {Site: model.SiteDanbooru, Login: file.Danbooru.Login, APIKey: file.Danbooru.APIKey},
		model.SiteE621:      {Site: model.SiteE621, Login: file.E621.Login, APIKey: file.E621.APIKey},
		model.SiteRule34:    {Site: model.SiteRule34, Login: file.Rule34.Login, APIKey: file.Rule34.APIKey},
		model.SiteGelbooru:  {Site: model.SiteGelbooru, Login: file.Gelbooru.Login, APIKey: file.Gelbooru.APIKey},
		model.SiteKonachan:  {Site: model.SiteKonachan, Login: file.Konachan.Login, APIKey: file.Konachan.APIKey},
		model.SiteRealbooru: {Site: model.SiteRealbooru, Login: file.Realbooru.Login, APIKey: file.Realbooru.APIKey},
	}
	return creds, nil
}

func writeEmptyAuth(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("%w: creating auth file %s: %v", model.ErrConfig, path, err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(AuthFile{})
}
