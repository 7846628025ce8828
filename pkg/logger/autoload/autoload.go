package autoload

import (
	configx "github.com/harborins/concierge/pkg/config"
	logx "github.com/harborins/concierge/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
