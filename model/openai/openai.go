//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package openai implements model.Model over OpenAI-compatible chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-vischart-go/model"
)

const defaultTimeout = 5 * time.Minute

// Option configures a Model.
type Option func(*options)

type options struct {
	apiKey     string
	baseURL    string
	maxRetries int
	timeout    time.Duration
	extra      []option.RequestOption
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithMaxRetries sets the transport level retry count.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRequestOptions appends raw client options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// Model is a chat completion model.
type Model struct {
	name   string
	client openaigo.Client
}

// New creates a model named name.
func New(name string, opt ...Option) *Model {
	opts := &options{maxRetries: 2, timeout: defaultTimeout}
	for _, o := range opt {
		o(opts)
	}
	reqOpts := []option.RequestOption{
		option.WithMaxRetries(opts.maxRetries),
		option.WithRequestTimeout(opts.timeout),
	}
	if opts.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.apiKey))
	}
	if opts.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.baseURL))
	}
	reqOpts = append(reqOpts, opts.extra...)
	return &Model{name: name, client: openaigo.NewClient(reqOpts...)}
}

// Info describes the model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name}
}

// Generate runs one chat completion.
func (m *Model) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}
	params, err := m.buildParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion (model=%s): %w", m.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion (model=%s): no choices", m.name)
	}
	return &model.Response{
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Usage: model.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (m *Model) buildParams(req *model.Request) (openaigo.ChatCompletionNewParams, error) {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			messages = append(messages, openaigo.SystemMessage(msg.Content))
		case model.RoleUser:
			messages = append(messages, openaigo.UserMessage(msg.Content))
		case model.RoleAssistant:
			messages = append(messages, openaigo.AssistantMessage(msg.Content))
		default:
			return openaigo.ChatCompletionNewParams{}, fmt.Errorf("unsupported role %q", msg.Role)
		}
	}
	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(m.name),
		Messages: messages,
	}
	cfg := req.GenerationConfig
	if cfg.Temperature != nil {
		params.Temperature = openaigo.Float(*cfg.Temperature)
	}
	if cfg.MaxTokens != nil {
		params.MaxTokens = openaigo.Int(int64(*cfg.MaxTokens))
	}
	if cfg.JSONMode {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params, nil
}
