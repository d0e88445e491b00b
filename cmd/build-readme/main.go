// Command build-readme regenerates README.md from README.md.tmpl and the
// registered commands.
package main

import (
	"bytes"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/command/core"
	"github.com/keshon/jukebox/internal/command/music"
	"github.com/keshon/jukebox/internal/docs"
	"github.com/keshon/jukebox/pkg/cmd"
)

func main() {
	tmplPath := flag.String("template", "README.md.tmpl", "template to render")
	outPath := flag.String("out", "README.md", "file to write")
	prefix := flag.String("prefix", "!", "command prefix shown in examples")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	tmpl, err := os.ReadFile(*tmplPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read template")
	}

	reg := cmd.NewRegistry()
	core.Register(reg, *prefix)
	music.Register(reg, &music.Deps{})

	var out bytes.Buffer
	if err := docs.Render(&out, string(tmpl), reg, *prefix); err != nil {
		log.Fatal().Err(err).Msg("Failed to render README")
	}
	if err := os.WriteFile(*outPath, out.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write README")
	}
	log.Info().Str("path", *outPath).Msg("README updated with current commands")
}
