package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Pacotes de infraestrutura e utilitários
	"matstock/config"
	"matstock/internal/pkg/cache"
	"matstock/internal/pkg/database"
	"matstock/internal/pkg/logger"
	"matstock/internal/pkg/token"

	// Camadas da aplicação para Injeção de Dependências
	"matstock/internal/api/assignment"
	"matstock/internal/api/material"
	"matstock/internal/api/request"
	"matstock/internal/api/router"
	"matstock/internal/api/user"
	"matstock/internal/repository/assignmentrepo"
	"matstock/internal/repository/materialrepo"
	"matstock/internal/repository/requestrepo"
	"matstock/internal/repository/userrepo"
	"matstock/internal/service/assignmentservice"
	"matstock/internal/service/materialservice"
	"matstock/internal/service/notifier"
	"matstock/internal/service/requestservice"
	"matstock/internal/service/userservice"
)

func main() {
	// 1. Configuração e Inicialização
	stdlog.Println("⚡ Inicializando serviço MatStock...")

	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Sem .env seguimos em frente: as variáveis essenciais podem estar
		// no ambiente do sistema (ex: Docker).
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	materialRepo := materialrepo.NewMaterialRepository(db, cacheClient, cfg.DBTimeout, log)
	requestRepo := requestrepo.NewRequestRepository(db, materialRepo, cfg.DBTimeout, log)
	assignmentRepo := assignmentrepo.NewAssignmentRepository(db, materialRepo, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	materialSvc := materialservice.NewService(materialRepo, log)
	requestSvc := requestservice.NewService(requestRepo, log)
	assignmentSvc := assignmentservice.NewService(assignmentRepo, log)
	userSvc := userservice.NewService(userRepo, tokenSvc)
	log.Debug("Serviços inicializados.", nil)

	// C. Notificador de Estoque Baixo (loop de fundo, leitura pura)
	lowStockNotifier := notifier.NewLowStockNotifier(
		materialRepo,
		notifier.NewLogAlerter(log),
		cfg.NotifyInterval,
		log,
	)
	lowStockNotifier.Start(context.Background())
	defer lowStockNotifier.Stop()

	// D. Handlers (Camada de Apresentação)
	materialHandler := material.NewHandler(materialSvc, log)
	requestHandler := request.NewHandler(requestSvc, log)
	assignmentHandler := assignment.NewHandler(assignmentSvc, log)
	userHandler := user.NewHandler(userSvc, log)
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(
		materialHandler,
		requestHandler,
		assignmentHandler,
		userHandler,
		tokenSvc,
		cacheClient,
		cfg.RateLimitMaxRequests,
		cfg.RateLimitPeriod,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor MatStock ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
