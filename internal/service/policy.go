package service

import (
	"learnhub_backend/internal/config"
	"sync"
	"time"
)

// QuizPolicy 测验及完成规则，支持配置热更新
type QuizPolicy struct {
	mu  sync.RWMutex
	cfg config.QuizConfig
}

func NewQuizPolicy(cfg config.QuizConfig) *QuizPolicy {
	return &QuizPolicy{cfg: cfg}
}

func (p *QuizPolicy) Set(cfg config.QuizConfig) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

func (p *QuizPolicy) Get() config.QuizConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *QuizPolicy) PassingScore() float64 {
	return p.Get().PassingScore
}

func (p *QuizPolicy) RetakeCooldown() time.Duration {
	return p.Get().RetakeCooldown()
}

func (p *QuizPolicy) WatchRatio() float64 {
	return p.Get().WatchRatio
}
