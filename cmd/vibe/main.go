// Command vibe runs a Vibe program to completion: it loads a JSON-encoded
// AST (see internal/ast.DecodeProgram — the lexer/parser/analyzer are out
// of scope per spec §1), wires a provider, a sandboxed tool registry, and a
// host-code evaluator into an interp.Runtime, and drives it with
// interp.Driver until it completes or fails.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/config"
	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/interp"
	"github.com/vibelang/vibe/internal/provider/openaicompat"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/tool/builtin"
)

func main() {
	config.LoadEnv()

	programPath := flag.String("program", "", "path to a JSON-encoded AST (see internal/ast.DecodeProgram)")
	flag.Parse()
	if *programPath == "" {
		log.Fatalf("usage: vibe -program path/to/program.json")
	}

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║               vibe                    ║")
	fmt.Println("╚══════════════════════════════════════╝")

	data, err := os.ReadFile(*programPath)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", *programPath, err)
	}
	prog, err := ast.DecodeProgram(data)
	if err != nil {
		log.Fatalf("❌ Failed to decode AST from %s: %v", *programPath, err)
	}
	fmt.Printf("📄 Program: %s (%d top-level statements)\n", *programPath, len(prog.Statements))

	runtimeCfg := config.RuntimeFromEnv()
	fmt.Printf("📂 Sandbox root: %s\n", runtimeCfg.SandboxRoot)

	registry := tool.NewRegistry()
	builtin.Register(registry, runtimeCfg.SandboxRoot)
	fmt.Printf("🛠️  Tools: %d registered\n", len(registry.List()))

	llmCfg, err := openaicompat.ConfigFromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to load LLM config: %v", err)
	}
	llmClient, err := openaicompat.New(llmCfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize LLM client: %v", err)
	}
	fmt.Printf("🤖 LLM: %s @ %s\n", llmCfg.Model, llmCfg.BaseURL)

	evaluator := hosteval.NewEvaluator()
	if runtimeCfg.HostEvalTimeout > 0 {
		evaluator.DefaultTimeout = runtimeCfg.HostEvalTimeout
	}
	if !evaluator.Runtime.IsTsxReady() {
		fmt.Println("⚠️  No tsx-capable Node.js runtime found on PATH; ts(...) blocks will fail until one is installed")
	}

	opts := interp.Options{MaxToolRounds: runtimeCfg.MaxToolRounds}
	rt := interp.NewRuntime(registry, opts)
	rt.HostEval = evaluator
	interp.Load(rt, prog)

	driver := &interp.Driver{
		Provider: llmClient,
		HostEval: evaluator,
		AskUser:  askUserFromStdin,
	}

	ctx := context.Background()
	if rerr := driver.RunToCompletion(ctx, rt); rerr != nil {
		log.Fatalf("❌ Program failed: %s", rerr.Error())
	}
	fmt.Println("✅ Program completed")
}

func askUserFromStdin(_ context.Context, prompt string) (string, error) {
	fmt.Printf("❓ %s\n> ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
