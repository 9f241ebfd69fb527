package utils

// Version is overridden at build time with -ldflags "-X .../pkg/utils.Version=..."
var Version = "1.0.0"
