package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/config"
	"github.com/hopeflow/backend/internal/service/ai"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	mode := flag.String("mode", "reply", "测试模式: classify, prompt 或 reply")
	text := flag.String("text", "", "用户消息")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -text 提供用户消息")
	}

	tone := emotion.Classify(*text)

	switch *mode {
	case "classify":
		fmt.Printf("tone=%s supportType=%s\n", tone, emotion.SupportTypeFor(tone))
	case "prompt":
		fmt.Println(ai.Compose(*text, tone, nil))
	case "reply":
		runReply(*text, tone, *timeout)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=classify、-mode=prompt 或 -mode=reply 指定测试模式")
	}
}

func runReply(text string, tone emotion.Tone, timeout time.Duration) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("模型初始化失败: %v", err)
	}
	svc, err := ai.NewService(ctx, chatModel, string(cfg.AI.Provider), nil, nil)
	if err != nil {
		log.Fatalf("AI 服务初始化失败: %v", err)
	}

	params := ai.ParamsFor(tone)
	log.Printf("开始生成回复: provider=%s tone=%s temperature=%.1f maxTokens=%d", cfg.AI.Provider, tone, params.Temperature, params.MaxOutputTokens)

	start := time.Now()
	reply, err := svc.Generate(ctx, text, tone, nil)
	if err != nil {
		log.Fatalf("生成失败: %v", err)
	}

	log.Printf("生成成功: 耗时=%s", time.Since(start))
	fmt.Println(reply)
}
