package stage

import (
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

// Page is a texture page without GPU storage. IDs are assigned in
// declaration order starting at 1.
type Page struct {
	Name   string
	id     uint32
	width  int
	height int
}

func (p *Page) ID() uint32  { return p.id }
func (p *Page) Width() int  { return p.width }
func (p *Page) Height() int { return p.height }

// Pages creates a Page for each texture declared in scene.
func Pages(scene *formats.Scene) map[string]*Page {
	pages := make(map[string]*Page, len(scene.Textures))
	for i, t := range scene.Textures {
		pages[t.Name] = &Page{Name: t.Name, id: uint32(i + 1), width: t.Width, height: t.Height}
	}
	return pages
}

// PageResolver resolves texture names against pages. Unknown names
// resolve to nil.
func PageResolver(pages map[string]*Page) formats.TextureResolver {
	return func(name string) skeleton.Texture {
		if p, ok := pages[name]; ok {
			return p
		}
		return nil
	}
}
