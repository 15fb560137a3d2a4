package main

// General API documentation for swaggo. Regenerate with `swag init`.
//
// @title           whisperd API
// @version         1.0
// @description     HTTP API for asynchronous audio transcription jobs.
//
// @contact.name   whisperd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
