package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID       = "user_id"
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldFullName     = "full_name"
	fieldPasswordHash = "password_hash"
	fieldAvatarKey    = "avatar_key"
	fieldAvatarURL    = "avatar_url"
	fieldCoverKey     = "cover_key"
	fieldCoverURL     = "cover_url"
	fieldRefreshToken = "refresh_token"
	fieldContent      = "content"
	fieldUpdatedAt    = "updated_at"
)
