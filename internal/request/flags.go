package request

import "github.com/urfave/cli/v2"

// Flag names shared by the generate command and FlagValuesFrom.
const (
	FlagTopic       = "topic"
	FlagDescription = "description"
	FlagAudience    = "audience"
	FlagWordCount   = "wordcount"
	FlagTone        = "tone"
	FlagAuthor      = "author"
)

// CLIFlags returns the request flags.
func CLIFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagTopic, Aliases: []string{"t"}, Usage: "blog post topic"},
		&cli.StringFlag{Name: FlagDescription, Aliases: []string{"d"}, Usage: "short description of the angle to take"},
		&cli.StringFlag{Name: FlagAudience, Aliases: []string{"a"}, Usage: "target audience (default \"General\")"},
		&cli.IntFlag{Name: FlagWordCount, Aliases: []string{"w"}, Usage: "approximate length in words (default 800)"},
		&cli.StringFlag{Name: FlagTone, Usage: "writing tone (default \"Professional\")"},
		&cli.StringFlag{Name: FlagAuthor, Usage: "author name for the front matter"},
	}
}

// FlagValuesFrom reads the request flags from a cli context.
func FlagValuesFrom(c *cli.Context) FlagValues {
	v := FlagValues{
		Topic:       c.String(FlagTopic),
		Description: c.String(FlagDescription),
		Audience:    c.String(FlagAudience),
		WordCount:   c.Int(FlagWordCount),
		Tone:        c.String(FlagTone),
		Author:      c.String(FlagAuthor),
	}
	for _, name := range []string{FlagTopic, FlagDescription, FlagAudience, FlagWordCount, FlagTone, FlagAuthor} {
		if c.IsSet(name) {
			v.Set = true
			break
		}
	}
	return v
}
