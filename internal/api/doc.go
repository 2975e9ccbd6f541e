// Package api provides the TikTok connect and publish REST API.
//
//	@title						TikTok Connect API
//	@version					1.0
//	@description				Connects TikTok accounts over OAuth with PKCE and publishes videos to them.
//	@BasePath					/api
//	@securityDefinitions.apikey	SessionAuth
//	@in							header
//	@name						Authorization
package api

//go:generate go tool swag init --generalInfo doc.go --dir .,./handler,./request,./response,../core,../model --output docs --outputTypes json
