package store

var (
	NewRedisWithClient = newRedisWithClient
	NewS3WithClient    = newS3WithClient
)
