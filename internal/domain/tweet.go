package domain

import "time"

type Tweet struct {
	TweetID   string    `json:"id" dynamodbav:"tweet_id"`
	OwnerID   string    `json:"owner_id" dynamodbav:"owner_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateTweetRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}

type UpdateTweetRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}
