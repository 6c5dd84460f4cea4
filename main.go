package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/scanline/cmd"
	"github.com/urfave/cli"
)

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "part-width",
			Value: 64,
			Usage: "width of the frame parts handed to the render workers",
		},
		cli.IntFlag{
			Name:  "part-height",
			Value: 64,
			Usage: "height of the frame parts handed to the render workers",
		},
		cli.IntFlag{
			Name:  "osa",
			Value: 8,
			Usage: "samples per pixel; one of 5, 8, 11 or 16. Use 0 to disable oversampling",
		},
		cli.IntFlag{
			Name:  "threads",
			Usage: "number of render workers; defaults to the number of logical cores",
		},
		cli.StringFlag{
			Name:  "alpha",
			Value: "sky",
			Usage: "background alpha mode: sky, premul or key",
		},
		cli.BoolFlag{
			Name:  "edge",
			Usage: "draw z-buffer outlines",
		},
		cli.IntFlag{
			Name:  "edge-intensity",
			Value: 50,
			Usage: "outline intensity in [0, 255]",
		},
		cli.BoolFlag{
			Name:  "no-raytrace",
			Usage: "disable ray traced shadows and ambient occlusion",
		},
		cli.BoolFlag{
			Name:  "no-envmaps",
			Usage: "disable env map capture",
		},
		cli.BoolFlag{
			Name:  "no-halos",
			Usage: "disable halo rendering",
		},
		cli.BoolFlag{
			Name:  "no-transparent",
			Usage: "disable the transparent z-buffer",
		},
	}
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "scanline"
	app.Usage = "render and bake scenes using a tiled scanline renderer"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringSliceFlag{
			Name:  "log-module",
			Value: &cli.StringSlice{},
			Usage: "override the log level of a module using the module=level syntax",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:  "frame",
					Usage: "render single frame",
					Description: `
Render a single frame of a scene description (.toml, .yaml) or a wavefront
obj file. Flags override the render settings stored in the scene file.

Scenes with several render layers are written to one image per layer; the
layer name is inserted before the file extension.`,
					ArgsUsage: "scene_file",
					Flags: append(renderFlags(),
						cli.StringFlag{
							Name:  "scheduler",
							Value: "center",
							Usage: "part scheduler: center or feedback",
						},
						cli.BoolFlag{
							Name:  "all-passes",
							Usage: "write every pass requested by the render layers",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:      "envmap",
					Usage:     "capture scene env maps",
					ArgsUsage: "scene_file",
					Flags: append(renderFlags(),
						cli.StringFlag{
							Name:  "out-dir, o",
							Value: ".",
							Usage: "folder for the cube cross images",
						},
					),
					Action: cmd.RenderEnvMaps,
				},
			},
		},
		{
			Name:  "bake",
			Usage: "bake selected objects into their face images",
			Description: `
Scan convert the uv layout of every selected object into the images assigned
to its faces and shade each covered texel.`,
			ArgsUsage: "scene_file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Value: "all",
					Usage: "bake mode: all, normals, textures or ao",
				},
				cli.StringFlag{
					Name:  "space",
					Value: "tangent",
					Usage: "normal space: camera, world, object or tangent",
				},
				cli.IntFlag{
					Name:  "margin",
					Value: 2,
					Usage: "number of texels to extend baked islands by",
				},
				cli.IntFlag{
					Name:  "threads",
					Usage: "number of bake workers; defaults to the number of logical cores",
				},
				cli.BoolFlag{
					Name:  "no-clear",
					Usage: "keep the existing image contents",
				},
				cli.StringFlag{
					Name:  "out-dir, o",
					Value: ".",
					Usage: "folder for the baked images",
				},
			},
			Action: cmd.Bake,
		},
		{
			Name:  "scene",
			Usage: "inspect scenes",
			Subcommands: []cli.Command{
				{
					Name:      "info",
					Usage:     "print scene statistics",
					ArgsUsage: "scene_file",
					Action:    cmd.ShowSceneInfo,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
