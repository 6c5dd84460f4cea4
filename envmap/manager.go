package envmap

import (
	"context"
	"time"

	"github.com/achilleasa/scanline/log"
	"github.com/achilleasa/scanline/scene"
	"github.com/achilleasa/scanline/texture"
)

// Manager keeps the env maps of a scene up to date before a frame render.
type Manager struct {
	logger log.Logger

	scene  *scene.Scene
	render RenderFunc
	opts   Options

	// Time spent in the last MakeEnvMaps call and the number of faces it
	// captured.
	Elapsed  time.Duration
	Captured int
}

// Create a manager for the env maps referenced by a scene.
func NewManager(sc *scene.Scene, render RenderFunc, opts Options) *Manager {
	return &Manager{
		logger: log.New("envmap manager"),
		scene:  sc,
		render: render,
		opts:   opts,
	}
}

// Collect the env maps used by the scene: textures registered with the
// scene and those only reachable through material texture slots.
func (m *Manager) envMaps() []*EnvMap {
	var (
		maps []*EnvMap
		seen = make(map[*EnvMap]struct{})
	)
	add := func(tex texture.Texture) {
		env, ok := tex.(*EnvMap)
		if !ok {
			return
		}
		if _, dup := seen[env]; dup {
			return
		}
		seen[env] = struct{}{}
		maps = append(maps, env)
	}

	for _, tex := range m.scene.Textures {
		add(tex)
	}
	for _, mat := range m.scene.Materials {
		for _, slot := range mat.Textures {
			if slot != nil && slot.Tex != nil {
				add(slot.Tex)
			}
		}
	}
	return maps
}

// Bring all env maps up to date. Loaded maps are split from their image,
// the others are captured from their probe objects. Maps that see other
// maps are captured again once per recursion level up to their Depth so
// that reflections of reflections show up.
func (m *Manager) MakeEnvMaps(ctx context.Context) error {
	start := time.Now()
	m.Captured = 0
	defer func() {
		m.Elapsed = time.Since(start)
	}()

	maps := m.envMaps()
	if len(maps) == 0 {
		return nil
	}
	m.logger.Infof("creating %d environment map(s)", len(maps))

	for _, env := range maps {
		if env.Source == Load {
			env.updateProbe()
			if env.State() == NotReady {
				if env.Image == nil || !env.SplitImage(env.Image.Buf) {
					m.logger.Warningf("env map %q: no usable image; lookups will return nothing", env.Name())
				}
			}
			continue
		}

		// Maps built for a different frame size or sampling mode are stale.
		if state := env.State(); state != NotReady {
			osaChanged := (state == OSA) != m.opts.OSA
			env.mu.RLock()
			sizeChanged := env.lastSize != m.opts.Size
			env.mu.RUnlock()
			if osaChanged || sizeChanged {
				env.Free()
			}
		}
		if env.Source == Anim {
			env.recalc = true
		}
	}

	for depth := 0; depth < MaxDepth; depth++ {
		for _, env := range maps {
			if env.Source == Load || env.Depth < depth {
				continue
			}
			if env.Object == nil || env.Object.Lay&m.opts.Lay == 0 {
				continue
			}

			if env.State() != NotReady && env.recalc {
				env.Free()
			}
			if env.State() != NotReady {
				continue
			}
			if depth == 0 {
				env.recalc = true
			}

			if err := Capture(ctx, m.scene, env, m.opts, m.render); err != nil {
				env.Free()
				return err
			}
			if env.Type == Plane {
				m.Captured++
			} else {
				m.Captured += 6
			}
			if depth == env.Depth {
				env.recalc = false
			}
			m.logger.Debugf("env map %q captured at recursion level %d", env.Name(), depth)
		}
	}

	m.logger.Infof("captured %d env map face(s) in %d ms", m.Captured, time.Since(start).Milliseconds())
	return nil
}

// Release the faces of every non-loaded map.
func (m *Manager) Free() {
	for _, env := range m.envMaps() {
		if env.Source != Load {
			env.Free()
		}
	}
}
