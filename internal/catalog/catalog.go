// Package catalog loads the static model lists (name -> prompt flag) that the
// platform's gen/video/move commands accept. The json files are snapshots of
// the upstream model listing and are refreshed out of band.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/haojie06/domoai-http/internal/logger"
)

type ModelInfo struct {
	Name       string `json:"name"`
	PromptArgs string `json:"prompt_args"`
}

var familyFiles = map[string]string{
	"gen":   "gen-models.json",
	"video": "v2v-models.json",
	"move":  "move-models.json",
}

// Catalog maps, per command family, a user-facing model name to its prompt
// flag token (the prompt_args value without the leading --). A family with no
// catalog file is simply absent; lookups against it pass tokens through.
type Catalog struct {
	families map[string]map[string]string
}

// Load reads whatever model files exist under dir. A missing directory or
// file only disables validation for that family, it is not an error; a file
// that exists but does not parse is.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{families: make(map[string]map[string]string)}
	if dir == "" {
		return c, nil
	}
	log := logger.NewCustomLogger().With("component", "catalog")
	for family, filename := range familyFiles {
		payload, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var models []ModelInfo
		if err := json.Unmarshal(payload, &models); err != nil {
			return nil, err
		}
		tokens := make(map[string]string, len(models))
		for _, model := range models {
			tokens[model.Name] = strings.TrimPrefix(model.PromptArgs, "--")
		}
		c.families[family] = tokens
		log.Infof("loaded %d %s models", len(tokens), family)
	}
	return c, nil
}

func (c *Catalog) HasFamily(family string) bool {
	_, exist := c.families[family]
	return exist
}

// ResolveModel returns the prompt token for name. When the family has no
// catalog the name itself is returned; when it has one, unknown names fail.
func (c *Catalog) ResolveModel(family, name string) (string, bool) {
	tokens, exist := c.families[family]
	if !exist {
		return name, true
	}
	token, known := tokens[name]
	return token, known
}
