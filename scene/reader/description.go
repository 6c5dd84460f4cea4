package reader

import (
	"fmt"
	"strings"

	"github.com/achilleasa/scanline/bake"
	"github.com/achilleasa/scanline/renderer"
	"github.com/achilleasa/scanline/types"
)

// Render settings stored in a scene description. Unset fields keep the
// renderer defaults or the command line values.
type RenderSettings struct {
	Width      *int `toml:"width" yaml:"width"`
	Height     *int `toml:"height" yaml:"height"`
	PartWidth  *int `toml:"part_width" yaml:"part_width"`
	PartHeight *int `toml:"part_height" yaml:"part_height"`
	OSA        *int `toml:"osa" yaml:"osa"`
	Threads    *int `toml:"threads" yaml:"threads"`

	AlphaMode string `toml:"alpha_mode" yaml:"alpha_mode"`

	Edge          *bool       `toml:"edge" yaml:"edge"`
	EdgeIntensity *int        `toml:"edge_intensity" yaml:"edge_intensity"`
	EdgeColor     *types.Vec3 `toml:"edge_color" yaml:"edge_color"`

	RayTracing  *bool `toml:"raytracing" yaml:"raytracing"`
	EnvMaps     *bool `toml:"envmaps" yaml:"envmaps"`
	Halos       *bool `toml:"halos" yaml:"halos"`
	Transparent *bool `toml:"transparent" yaml:"transparent"`
}

// Apply the settings on top of a set of render options.
func (s *RenderSettings) Apply(opts *renderer.Options) error {
	set(&opts.FrameW, s.Width)
	set(&opts.FrameH, s.Height)
	set(&opts.PartW, s.PartWidth)
	set(&opts.PartH, s.PartHeight)
	set(&opts.OSA, s.OSA)
	set(&opts.Threads, s.Threads)
	set(&opts.Edge, s.Edge)
	set(&opts.EdgeIntensity, s.EdgeIntensity)
	set(&opts.EdgeColor, s.EdgeColor)
	set(&opts.RayTracing, s.RayTracing)
	set(&opts.EnvMaps, s.EnvMaps)
	set(&opts.Halos, s.Halos)
	set(&opts.Transparent, s.Transparent)

	if s.AlphaMode != "" {
		mode, ok := renderer.ParseAlphaMode(strings.ToLower(s.AlphaMode))
		if !ok {
			return fmt.Errorf("reader: unknown alpha mode '%s'", s.AlphaMode)
		}
		opts.AlphaMode = mode
	}
	return nil
}

// Bake settings stored in a scene description.
type BakeSettings struct {
	Mode        string `toml:"mode" yaml:"mode"`
	NormalSpace string `toml:"normal_space" yaml:"normal_space"`
	Margin      *int   `toml:"margin" yaml:"margin"`
	Threads     *int   `toml:"threads" yaml:"threads"`
	Clear       *bool  `toml:"clear" yaml:"clear"`
}

// Apply the settings on top of a set of bake options.
func (s *BakeSettings) Apply(opts *bake.Options) error {
	var err error
	if s.Mode != "" {
		if opts.Mode, err = bake.ParseMode(s.Mode); err != nil {
			return fmt.Errorf("reader: %w", err)
		}
	}
	if s.NormalSpace != "" {
		if opts.NormalSpace, err = bake.ParseNormalSpace(s.NormalSpace); err != nil {
			return fmt.Errorf("reader: %w", err)
		}
	}
	set(&opts.Margin, s.Margin)
	set(&opts.Threads, s.Threads)
	set(&opts.Clear, s.Clear)
	return nil
}

// The scene description schema. Angles are in degrees and paths are
// relative to the description file.
type description struct {
	Render    RenderSettings `toml:"render" yaml:"render"`
	Bake      BakeSettings   `toml:"bake" yaml:"bake"`
	Lay       *uint32        `toml:"lay" yaml:"lay"`
	Camera    *cameraDesc    `toml:"camera" yaml:"camera"`
	World     *worldDesc     `toml:"world" yaml:"world"`
	Layers    []layerDesc    `toml:"layers" yaml:"layers"`
	Lamps     []lampDesc     `toml:"lamps" yaml:"lamps"`
	Images    []imageDesc    `toml:"images" yaml:"images"`
	Textures  []textureDesc  `toml:"textures" yaml:"textures"`
	Materials []materialDesc `toml:"materials" yaml:"materials"`
	Objects   []objectDesc   `toml:"objects" yaml:"objects"`
	Particles []particleDesc `toml:"particles" yaml:"particles"`
}

type cameraDesc struct {
	Type       string      `toml:"type" yaml:"type"`
	Position   *types.Vec3 `toml:"position" yaml:"position"`
	LookAt     *types.Vec3 `toml:"look_at" yaml:"look_at"`
	Up         *types.Vec3 `toml:"up" yaml:"up"`
	FOV        *float32    `toml:"fov" yaml:"fov"`
	OrthoScale *float32    `toml:"ortho_scale" yaml:"ortho_scale"`
	ClipStart  *float32    `toml:"clip_start" yaml:"clip_start"`
	ClipEnd    *float32    `toml:"clip_end" yaml:"clip_end"`
	Panorama   bool        `toml:"panorama" yaml:"panorama"`
}

type mistDesc struct {
	Type      string   `toml:"type" yaml:"type"`
	Start     *float32 `toml:"start" yaml:"start"`
	Depth     *float32 `toml:"depth" yaml:"depth"`
	Height    *float32 `toml:"height" yaml:"height"`
	Intensity *float32 `toml:"intensity" yaml:"intensity"`
}

type aoDesc struct {
	Energy  *float32 `toml:"energy" yaml:"energy"`
	Dist    *float32 `toml:"dist" yaml:"dist"`
	Samples *int     `toml:"samples" yaml:"samples"`
}

type worldDesc struct {
	Horizon *types.Vec3 `toml:"horizon" yaml:"horizon"`
	Zenith  *types.Vec3 `toml:"zenith" yaml:"zenith"`
	Ambient *types.Vec3 `toml:"ambient" yaml:"ambient"`
	Sky     []string    `toml:"sky" yaml:"sky"`
	Mist    *mistDesc   `toml:"mist" yaml:"mist"`
	AO      *aoDesc     `toml:"ao" yaml:"ao"`
}

type layerDesc struct {
	Name   string   `toml:"name" yaml:"name"`
	Lay    uint32   `toml:"lay" yaml:"lay"`
	Flags  []string `toml:"flags" yaml:"flags"`
	Passes []string `toml:"passes" yaml:"passes"`
}

type lampDesc struct {
	Name       string      `toml:"name" yaml:"name"`
	Type       string      `toml:"type" yaml:"type"`
	Position   *types.Vec3 `toml:"position" yaml:"position"`
	Direction  *types.Vec3 `toml:"direction" yaml:"direction"`
	Color      *types.Vec3 `toml:"color" yaml:"color"`
	Energy     *float32    `toml:"energy" yaml:"energy"`
	Dist       *float32    `toml:"dist" yaml:"dist"`
	Falloff    string      `toml:"falloff" yaml:"falloff"`
	SpotSize   *float32    `toml:"spot_size" yaml:"spot_size"`
	SpotBlend  *float32    `toml:"spot_blend" yaml:"spot_blend"`
	Shadow     bool        `toml:"shadow" yaml:"shadow"`
	NoDiffuse  bool        `toml:"no_diffuse" yaml:"no_diffuse"`
	NoSpecular bool        `toml:"no_specular" yaml:"no_specular"`
	LayerOnly  bool        `toml:"layer_only" yaml:"layer_only"`
	Lay        *uint32     `toml:"lay" yaml:"lay"`
}

// Images are either decoded from a file or allocated blank, typically as
// bake targets.
type imageDesc struct {
	Name   string `toml:"name" yaml:"name"`
	Path   string `toml:"path" yaml:"path"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Float  bool   `toml:"float" yaml:"float"`
}

type textureDesc struct {
	Name     string   `toml:"name" yaml:"name"`
	Type     string   `toml:"type" yaml:"type"`
	Bright   *float32 `toml:"bright" yaml:"bright"`
	Contrast *float32 `toml:"contrast" yaml:"contrast"`

	// image
	Image       string   `toml:"image" yaml:"image"`
	Extend      string   `toml:"extend" yaml:"extend"`
	Flags       []string `toml:"flags" yaml:"flags"`
	Repeat      *[2]int  `toml:"repeat" yaml:"repeat"`
	CheckerDist *float32 `toml:"checker_dist" yaml:"checker_dist"`

	// envmap
	EnvType    string   `toml:"env_type" yaml:"env_type"`
	Source     string   `toml:"source" yaml:"source"`
	Object     string   `toml:"object" yaml:"object"`
	CubeRes    *int     `toml:"cube_res" yaml:"cube_res"`
	ClipStart  *float32 `toml:"clip_start" yaml:"clip_start"`
	ClipEnd    *float32 `toml:"clip_end" yaml:"clip_end"`
	ViewScale  *float32 `toml:"view_scale" yaml:"view_scale"`
	Depth      *int     `toml:"depth" yaml:"depth"`
	ExcludeLay uint32   `toml:"exclude_lay" yaml:"exclude_lay"`
	FilterSize *float32 `toml:"filter_size" yaml:"filter_size"`

	// pointdensity
	PointSource    string   `toml:"point_source" yaml:"point_source"`
	ParticleSystem string   `toml:"particle_system" yaml:"particle_system"`
	Space          string   `toml:"space" yaml:"space"`
	Radius         *float32 `toml:"radius" yaml:"radius"`
	Falloff        string   `toml:"falloff" yaml:"falloff"`
	Softness       *float32 `toml:"softness" yaml:"softness"`
}

type slotDesc struct {
	Texture  string      `toml:"texture" yaml:"texture"`
	TexCo    string      `toml:"texco" yaml:"texco"`
	UVLayer  string      `toml:"uv_layer" yaml:"uv_layer"`
	Object   string      `toml:"object" yaml:"object"`
	MapTo    []string    `toml:"map_to" yaml:"map_to"`
	MapToNeg []string    `toml:"map_to_neg" yaml:"map_to_neg"`
	Blend    string      `toml:"blend" yaml:"blend"`
	Offset   *types.Vec3 `toml:"offset" yaml:"offset"`
	Size     *types.Vec3 `toml:"size" yaml:"size"`
	Color    *types.Vec3 `toml:"color" yaml:"color"`
	ColFac   *float32    `toml:"col_fac" yaml:"col_fac"`
	VarFac   *float32    `toml:"var_fac" yaml:"var_fac"`
	NorFac   *float32    `toml:"nor_fac" yaml:"nor_fac"`
	DefVar   *float32    `toml:"def_var" yaml:"def_var"`
}

type haloDesc struct {
	Flags      []string `toml:"flags" yaml:"flags"`
	Size       *float32 `toml:"size" yaml:"size"`
	Add        *float32 `toml:"add" yaml:"add"`
	Hard       *int     `toml:"hard" yaml:"hard"`
	FlareSize  *float32 `toml:"flare_size" yaml:"flare_size"`
	SubSize    *float32 `toml:"sub_size" yaml:"sub_size"`
	FlareBoost *float32 `toml:"flare_boost" yaml:"flare_boost"`
	Flares     *int     `toml:"flares" yaml:"flares"`
	Stars      *int     `toml:"stars" yaml:"stars"`
	Lines      *int     `toml:"lines" yaml:"lines"`
	Rings      *int     `toml:"rings" yaml:"rings"`
	Seed       *int     `toml:"seed" yaml:"seed"`
	FlareSeed  *int     `toml:"flare_seed" yaml:"flare_seed"`
}

type materialDesc struct {
	Name       string      `toml:"name" yaml:"name"`
	Color      *types.Vec3 `toml:"color" yaml:"color"`
	SpecColor  *types.Vec3 `toml:"spec_color" yaml:"spec_color"`
	MirColor   *types.Vec3 `toml:"mir_color" yaml:"mir_color"`
	Alpha      *float32    `toml:"alpha" yaml:"alpha"`
	Ref        *float32    `toml:"ref" yaml:"ref"`
	Spec       *float32    `toml:"spec" yaml:"spec"`
	Emit       *float32    `toml:"emit" yaml:"emit"`
	Amb        *float32    `toml:"amb" yaml:"amb"`
	RayMirror  *float32    `toml:"ray_mirror" yaml:"ray_mirror"`
	Hard       *int        `toml:"hard" yaml:"hard"`
	SpecShader string      `toml:"spec_shader" yaml:"spec_shader"`
	Modes      []string    `toml:"modes" yaml:"modes"`
	PassIndex  int         `toml:"pass_index" yaml:"pass_index"`
	Halo       *haloDesc   `toml:"halo" yaml:"halo"`
	Textures   []slotDesc  `toml:"textures" yaml:"textures"`
}

type objectDesc struct {
	Name      string      `toml:"name" yaml:"name"`
	Mesh      string      `toml:"mesh" yaml:"mesh"`
	Position  *types.Vec3 `toml:"position" yaml:"position"`
	Rotation  *types.Vec3 `toml:"rotation" yaml:"rotation"`
	Scale     *types.Vec3 `toml:"scale" yaml:"scale"`
	Lay       *uint32     `toml:"lay" yaml:"lay"`
	PassIndex int         `toml:"pass_index" yaml:"pass_index"`
	Materials []string    `toml:"materials" yaml:"materials"`
	Selected  bool        `toml:"selected" yaml:"selected"`
	BakeImage string      `toml:"bake_image" yaml:"bake_image"`
}

type particleDesc struct {
	Name       string       `toml:"name" yaml:"name"`
	Object     string       `toml:"object" yaml:"object"`
	Points     []types.Vec3 `toml:"points" yaml:"points"`
	Velocities []types.Vec3 `toml:"velocities" yaml:"velocities"`
	Material   string       `toml:"material" yaml:"material"`
	Lay        *uint32      `toml:"lay" yaml:"lay"`
}

// Copy an optional value into dst.
func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Resolve a case-insensitive enum name.
func lookup[T any](kind, name string, values map[string]T) (T, error) {
	v, ok := values[strings.ToLower(name)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s '%s'", kind, name)
	}
	return v, nil
}

type flagSet interface {
	~uint8 | ~uint32
}

// Combine a list of flag names.
func flags[T flagSet](kind string, names []string, values map[string]T) (T, error) {
	var out T
	for _, name := range names {
		v, err := lookup(kind, name, values)
		if err != nil {
			return 0, err
		}
		out |= v
	}
	return out, nil
}
