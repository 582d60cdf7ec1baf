package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"booru-dl/internal/model"
)

// blacklistSection mirrors the on-disk [blacklist] table in blacklist.toml.
type blacklistSection struct {
	Global    []string `toml:"global"`
	Danbooru  []string `toml:"danbooru"`
	E621      []string `toml:"e621"`
	Rule34    []string `toml:"rule34"`
	Gelbooru  []string `toml:"gelbooru"`
	Konachan  []string `toml:"konachan"`
	Realbooru []string `toml:"realbooru"`
}

// BlacklistFile is the TOML-decoded shape of blacklist.toml.
type BlacklistFile struct {
	Blacklist blacklistSection `toml:"blacklist"`
}

// LoadBlacklist reads path, creating it with empty arrays on first run if
// absent, exactly as the teacher warns-and-continues on a missing config
// file but generalized here to "create the file" per spec.md §6.
func LoadBlacklist(path string) (model.Blacklist, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Infof("blacklist file %s not found, creating with empty arrays", path)
		if err := writeEmptyBlacklist(path); err != nil {
			return model.Blacklist{}, err
		}
		return model.NewBlacklist(), nil
	}

	var file BlacklistFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return model.Blacklist{}, fmt.Errorf("%w: decoding blacklist file %s: %v", model.ErrConfig, path, err)
	}

	bl := model.NewBlacklist()
	addTags(bl.Global, file.Blacklist.Global)
	bl.Sites[model.SiteDanbooru] = toTagSet(file.Blacklist.Danbooru)
	bl.Sites[model.SiteE621] = toTagSet(file.Blacklist.E621)
	bl.Sites[model.SiteRule34] = toTagSet(file.Blacklist.Rule34)
	bl.Sites[model.SiteGelbooru] = toTagSet(file.Blacklist.Gelbooru)
	bl.Sites[model.SiteKonachan] = toTagSet(file.Blacklist.Konachan)
	bl.Sites[model.SiteRealbooru] = toTagSet(file.Blacklist.Realbooru)
	return bl, nil
}

func addTags(dst map[string]struct{}, tags []string) {
	for _, t := range tags {
		dst[t] = struct{}{}
	}
}

func toTagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	addTags(set, tags)
	return set
}

func writeEmptyBlacklist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: creating config directory for %s: %v", model.ErrConfig, path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("%w: creating blacklist file %s: %v", model.ErrConfig, path, err)
	}
	defer f.Close()

	empty := BlacklistFile{}
	return toml.NewEncoder(f).Encode(empty)
}
