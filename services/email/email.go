package emailsvc

import (
	"os"

	"github.com/trezcool/homeroom/core"
)

// New picks SendGrid when an API key is configured, the console otherwise.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.SendgridApiKey != "" {
		return NewSendgridService(conf, logger)
	}
	return NewConsoleService(conf, os.Stdout, logger)
}
