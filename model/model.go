//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the text generation contract used by chart generators.
package model

import "context"

// Role is the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// GenerationConfig holds sampling parameters. Nil fields use the provider default.
type GenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool `json:"json_mode,omitempty"`
}

// Request is a generation request.
type Request struct {
	Messages         []Message
	GenerationConfig GenerationConfig
}

// Usage counts tokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is a generation result.
type Response struct {
	Model   string
	Content string
	Usage   Usage
}

// Model generates text from chat messages.
type Model interface {
	// Generate runs one completion.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// Info describes the model.
	Info() Info
}

// Info describes a model.
type Info struct {
	Name string
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
