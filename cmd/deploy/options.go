package main

import (
	"strings"
	"time"

	"github.com/ericfisherdev/envpanel/internal/deploy"
)

// options is the deploy command line. The struct tags are interpreted by
// github.com/jessevdk/go-flags; each flag falls back to its env variable.
type options struct {
	URL      string `long:"url" env:"DEPLOY_URL" description:"deployment endpoint URL"`
	Token    string `long:"token" env:"NODE_APP_TOKEN" description:"node API credential sent as nodeAPPToken"`
	FileName string `long:"file-name" env:"UPLOAD_FILE_NAME" default:"index.html" description:"target file name on the server"`
	FilePath string `long:"file-path" env:"UPLOAD_FILE_PATH" description:"target directory on the server"`
	DelayMS  int    `long:"delay" env:"DEPLOY_DELAY" default:"3000" description:"wait before uploading, in milliseconds"`
	Source   string `short:"s" long:"source" default:"dist/index.html" description:"local file to upload"`
	EnvFile  string `long:"env-file" default:".env" description:"optional dotenv file loaded before flags"`
}

func (o *options) settings() deploy.Settings {
	return deploy.Settings{
		URL:        o.URL,
		Token:      o.Token,
		SourceFile: o.Source,
		FileName:   o.FileName,
		FilePath:   o.FilePath,
		Delay:      time.Duration(o.DelayMS) * time.Millisecond,
	}
}

// extractEnvFile scans raw args for --env-file before full parsing so the
// dotenv file can populate env-backed flag defaults.
func extractEnvFile(args []string) string {
	for i, a := range args {
		switch {
		case a == "--env-file":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--env-file="):
			return strings.TrimPrefix(a, "--env-file=")
		}
	}
	return ".env"
}
