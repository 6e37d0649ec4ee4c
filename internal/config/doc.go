// Package config manages application configuration for the Renunganku API.
//
// Values are resolved in three layers, each overriding the previous one:
//
//  1. Built-in defaults from Default()
//  2. An optional YAML file named by CONFIG_FILE
//  3. Environment variables
//
// cmd/server loads a .env file into the environment before calling Load, so
// local development can keep secrets out of the shell profile.
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings, CORS, frontend and public URLs
//   - DatabaseConfig: SurrealDB connection settings
//   - AlkitabConfig: path to the SQLite Bible corpus
//   - JWTConfig: RS256 key files and token lifetime
//   - OAuthConfig: Google sign-in
//   - MailConfig: SMTP or log driver
//   - MediaConfig: upload directory, CDN rewrite, ffmpeg binaries
//   - BlogConfig: file-based blog content directory
//   - RateLimitConfig: per-client request budget
//
// # Environment Variables
//
//	SERVER_PORT          - HTTP port (default: 8080)
//	SERVER_ENV           - development, production, or test
//	FRONTEND_URL         - base URL used in mails and OAuth redirects
//	DB_HOST, DB_PORT     - SurrealDB endpoint
//	ALKITAB_DB_PATH      - SQLite corpus file
//	JWT_PRIVATE_KEY_PATH - RS256 signing key
//	GOOGLE_CLIENT_ID     - enables Google sign-in together with secret and redirect
//	MAIL_DRIVER          - smtp or log
//	MEDIA_UPLOAD_DIR     - where uploaded files are stored
//	BLOG_CONTENT_DIR     - YAML blog posts to import and watch
//
// Validate reports every problem at once via errors.Join.
package config
