package monitor

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Jitter 在闭区间内产生随机等待时长
type Jitter interface {
	Between(min, max time.Duration) time.Duration
}

// RandJitter 基于可设定种子的 PCG 随机源
type RandJitter struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewJitter 使用固定种子创建，测试中可复现
func NewJitter(seed uint64) *RandJitter {
	return &RandJitter{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomJitter 使用运行时随机种子创建
func NewRandomJitter() *RandJitter {
	return NewJitter(rand.Uint64())
}

func (j *RandJitter) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return min + time.Duration(j.r.Int64N(int64(max-min)+1))
}
