package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caroline-springs-cc/pitchbot/internal/config"
)

const starterConfig = `# pitchbot configuration. Every key can also be set through the
# environment with the PITCHBOT_ prefix, e.g. PITCHBOT_PLAYHQ_API_KEY.

club:
  name: "Caroline Springs CC"
  organisation_id: ""
  season_name: ""          # empty picks the season containing today's date

playhq:
  base_url: "https://api.playhq.com/v1"
  api_key: ""
  tenant: "ca"
  requests_per_minute: 60

store:
  driver: "sqlite"          # sqlite or postgres
  database_url: "pitchbot.db"

embedding:
  provider: "openai"        # openai or hash (offline, dev only)
  key: ""
  model: "text-embedding-3-small"
  dimensions: 1536

anthropic:
  key: ""
  model: "claude-haiku-4-5-20251001"
  max_tokens: 1024

answer:
  top_k: 6
  max_snippet_tokens: 1000

sync:
  nightly_hour_utc: 16      # 02:00 in Melbourne during daylight saving
  match_day_interval_mins: 30
  summary_lookback_days: 14

bridge:
  enabled: false
  gateway_url: ""           # wss:// chat gateway
  token: ""
  bot_id: ""
  command_prefix: "!csc"
  mention: "@pitchbot"

server:
  port: 8080
  refresh_token: ""         # empty disables /internal/refresh

log:
  level: "info"
  format: "json"
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("%s already exists, refusing to overwrite", path)
		}

		// Guard against template drift: the starter must unmarshal into
		// the live Config type.
		var check config.Config
		if err := yaml.Unmarshal([]byte(starterConfig), &check); err != nil {
			return eris.Wrap(err, "starter config invalid")
		}

		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return eris.Wrap(err, "write config")
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
