// Package main is the entry point for hsdsgate.
//
//	@title						hsdsgate - HSDS Publishing Gateway
//	@version					1.0
//	@description				Accepts Human Services Data Specification records over HTTP, validates them and publishes them to the community distribution network.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication (format: "Bearer {token}")
package main

func main() {
	Execute()
}
