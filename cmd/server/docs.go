package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Signal Exchange API
// @version         0.1.0
// @description     Presence, proximity matching, and signal lifecycle endpoints.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
