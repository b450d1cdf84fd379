package model

import "time"

// swagger:model Message
type Message struct {
	UUIDBase
	Content    string            `gorm:"type:text;not null" json:"content"`
	SenderID   uint              `gorm:"index;not null" json:"senderId"`
	SenderName string            `gorm:"size:100" json:"senderName"`
	Role       UserRole          `gorm:"size:20" json:"role"`
	Replies    []MessageReply    `gorm:"foreignKey:MessageID" json:"replies"`
	Reactions  []MessageReaction `gorm:"foreignKey:MessageID" json:"reactions"`
}

func (Message) TableName() string {
	return "messages"
}

// swagger:model MessageReply
type MessageReply struct {
	UUIDBase
	MessageID  string   `gorm:"type:varchar(36);index;not null" json:"messageId"`
	Content    string   `gorm:"type:text;not null" json:"content"`
	SenderID   uint     `gorm:"index;not null" json:"senderId"`
	SenderName string   `gorm:"size:100" json:"senderName"`
	Role       UserRole `gorm:"size:20" json:"role"`
}

func (MessageReply) TableName() string {
	return "message_replies"
}

// swagger:model MessageReaction
type MessageReaction struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_message_reaction" json:"messageId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_message_reaction" json:"userId"`
	Emoji     string    `gorm:"size:32;not null;uniqueIndex:idx_message_reaction" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

// ReactionSummary 按表情聚合的计数
type ReactionSummary struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []uint `json:"userIds"`
}

func SummarizeReactions(reactions []MessageReaction) []ReactionSummary {
	idx := map[string]int{}
	var out []ReactionSummary
	for _, r := range reactions {
		i, ok := idx[r.Emoji]
		if !ok {
			idx[r.Emoji] = len(out)
			out = append(out, ReactionSummary{Emoji: r.Emoji})
			i = len(out) - 1
		}
		out[i].Count++
		out[i].UserIDs = append(out[i].UserIDs, r.UserID)
	}
	return out
}
