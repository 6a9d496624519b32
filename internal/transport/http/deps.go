package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cliptube/identity-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/cliptube/identity-api/internal/infrastructure/jwt"
	s3infra "github.com/cliptube/identity-api/internal/infrastructure/s3"
	"github.com/cliptube/identity-api/internal/metrics"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	TweetRepo   *dynamo.TweetRepo
	S3Store     *s3infra.Store
	JWTProvider *jwtinfra.Provider
	Metrics     *metrics.PromCollector
	Registry    *prometheus.Registry
}
