package reader

import (
	"path"

	"github.com/achilleasa/scanline/asset"
	"github.com/achilleasa/scanline/asset/imbuf"
	"github.com/achilleasa/scanline/scene"
)

// Decoded images keyed by the referencing resource and the referenced path
// so that materials pointing at the same file share one buffer.
type imageCache struct {
	byRef map[[2]string]*scene.Image
}

func newImageCache() *imageCache {
	return &imageCache{byRef: make(map[[2]string]*scene.Image)}
}

// Load an image relative to relTo and register it with the scene.
func (c *imageCache) load(sc *scene.Scene, pathToImage string, relTo *asset.Resource) (*scene.Image, error) {
	key := [2]string{"", pathToImage}
	if relTo != nil {
		key[0] = relTo.Path()
	}
	if img, ok := c.byRef[key]; ok {
		return img, nil
	}

	res, err := asset.NewResource(pathToImage, relTo)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	buf, err := imbuf.Decode(res)
	if err != nil {
		return nil, err
	}
	img := &scene.Image{
		Name: path.Base(res.Path()),
		Path: res.Path(),
		Buf:  buf,
	}
	if err = sc.AddImage(img); err != nil {
		return nil, err
	}
	c.byRef[key] = img
	return img, nil
}
