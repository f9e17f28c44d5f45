package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/config"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/middleware/requestid"
)

// Options selects the zap preset, level and encoding.
type Options struct {
	Production bool
	Level      string
	Format     string
}

// New builds the service logger from configuration.
func New(cfg *config.Config) (*zap.Logger, error) {
	return Build(Options{
		Production: cfg.Env == config.EnvProduction,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
	})
}

// Build creates a logger; the CLI uses it directly with console output.
func Build(opts Options) (*zap.Logger, error) {
	return zapConfig(opts).Build()
}

func zapConfig(opts Options) zap.Config {
	var zapCfg zap.Config
	if opts.Production {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch opts.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if opts.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(opts.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg
}

// GinMiddleware logs one line per request.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		reqID := requestid.Value(c)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		l.Info("http_request", fields...)
	}
}
