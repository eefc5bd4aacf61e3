package router

//go:generate sh -c "cd .. && swag init --generalInfo router/docs.go --output docs/swagger --parseDependency --parseInternal --quiet"

// @title Examination API
// @version 1.0
// @description API documentation for the examination module service.
// @BasePath /
// @schemes https http
// @contact.name Priyx Studio
// @contact.url https://github.com/priyxstudio/examination
// @produce json
type docStub struct{}
