package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/lattice-graph/lattice/pkg/ai"
)

// App bundles the shared clients handlers need: the database pool, the
// message queue channel, the object store and the AI client.
type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	S3       *s3.Client
	AiClient ai.GraphAIClient
}

// AppContext wraps the echo context with the shared application state.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	s3Client *s3.Client,
	aiClient ai.GraphAIClient,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn:   db,
				Queue:    queue,
				S3:       s3Client,
				AiClient: aiClient,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
