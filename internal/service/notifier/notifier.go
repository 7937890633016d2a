package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"matstock/internal/domain"
	"matstock/internal/pkg/logger"
)

// LedgerReader é o contrato de leitura que o Notificador exige do Ledger.
// Leitura pura: o Notificador nunca bloqueia escritores e pode observar
// estado pré ou pós transação em qualquer varredura.
type LedgerReader interface {
	FindBelowMinimum(ctx context.Context) ([]domain.Material, error)
}

// Alerter recebe UM aviso por varredura cobrindo todos os materiais que
// acabaram de cruzar o mínimo (em lote, nunca um aviso por material).
type Alerter interface {
	Notify(ctx context.Context, materials []domain.Material) error
}

// LowStockNotifier varre o Ledger em intervalo fixo e dispara um alerta por
// evento de cruzamento de limiar: um material que permanece abaixo do mínimo
// por muitas varreduras gera exatamente um alerta, até se recuperar e cair
// de novo (level-triggered com detecção de borda).
//
// O conjunto de materiais já alertados vive apenas em memória e se perde no
// restart do processo: a primeira varredura seguinte alerta de novo para
// tudo que ainda estiver abaixo do mínimo.
type LowStockNotifier struct {
	ledger   LedgerReader
	alerter  Alerter
	interval time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	alerted map[string]struct{}

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLowStockNotifier cria e retorna um novo Notificador de Estoque Baixo.
func NewLowStockNotifier(ledger LedgerReader, alerter Alerter, interval time.Duration, logger logger.Logger) *LowStockNotifier {
	return &LowStockNotifier{
		ledger:   ledger,
		alerter:  alerter,
		interval: interval,
		logger:   logger,
		alerted:  make(map[string]struct{}),
	}
}

// Start inicia o loop de varredura em uma goroutine própria. Chamadas
// repetidas enquanto o loop está ativo são ignoradas.
func (n *LowStockNotifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})
	n.running = true

	go n.loop(loopCtx)

	n.logger.Info("Notificador de estoque baixo iniciado.", map[string]interface{}{
		"interval": n.interval.String(),
	})
}

// Stop encerra o loop e aguarda a varredura em andamento terminar.
func (n *LowStockNotifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	cancel, done := n.cancel, n.done
	n.running = false
	n.mu.Unlock()

	cancel()
	<-done

	n.logger.Info("Notificador de estoque baixo encerrado.", nil)
}

// loop executa uma varredura imediata e depois uma a cada intervalo.
func (n *LowStockNotifier) loop(ctx context.Context) {
	defer close(n.done)

	if err := n.CheckNow(ctx); err != nil {
		n.logger.Error("Falha na varredura de estoque baixo.", err)
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.CheckNow(ctx); err != nil {
				n.logger.Error("Falha na varredura de estoque baixo.", err)
			}
		}
	}
}

// CheckNow executa uma única varredura: consulta o Ledger, compara com o
// conjunto de já-alertados, dispara no máximo um alerta em lote para os
// recém-cruzados e remove do conjunto os materiais que se recuperaram
// (para que um novo cruzamento alerte de novo).
func (n *LowStockNotifier) CheckNow(ctx context.Context) error {
	below, err := n.ledger.FindBelowMinimum(ctx)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	nowBelow := make(map[string]struct{}, len(below))
	var newly []domain.Material
	for _, m := range below {
		nowBelow[m.ID] = struct{}{}
		if _, already := n.alerted[m.ID]; !already {
			newly = append(newly, m)
		}
	}

	// 1. Alerta único cobrindo todos os recém-cruzados
	if len(newly) > 0 {
		if err := n.alerter.Notify(ctx, newly); err != nil {
			// Não marca como alertado: a próxima varredura tenta de novo.
			n.logger.Error("Falha ao emitir alerta de estoque baixo.", err)
			return err
		}
		for _, m := range newly {
			n.alerted[m.ID] = struct{}{}
		}
	}

	// 2. Materiais recuperados saem do conjunto
	for id := range n.alerted {
		if _, still := nowBelow[id]; !still {
			delete(n.alerted, id)
		}
	}

	return nil
}

// AlertedIDs expõe uma cópia do conjunto de já-alertados (inspeção/testes).
func (n *LowStockNotifier) AlertedIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.alerted))
	for id := range n.alerted {
		out = append(out, id)
	}
	return out
}

// LogAlerter é a implementação padrão de Alerter: registra um WARN
// estruturado com os materiais recém-cruzados. Outras implementações
// (email, webhook) podem substituí-la sem mudar o contrato de alerta.
type LogAlerter struct {
	logger logger.Logger
}

// NewLogAlerter cria um Alerter baseado no logger estruturado.
func NewLogAlerter(logger logger.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

// Notify emite um único registro WARN com todos os materiais do lote.
func (a *LogAlerter) Notify(_ context.Context, materials []domain.Material) error {
	names := make([]string, 0, len(materials))
	fields := make(map[string]interface{}, len(materials)+1)
	for _, m := range materials {
		names = append(names, m.Name)
		fields[m.ID] = map[string]interface{}{
			"name":     m.Name,
			"quantity": m.Quantity,
			"minimum":  m.MinimumQuantity,
			"unit":     m.Unit,
		}
	}
	fields["materials"] = strings.Join(names, ", ")

	a.logger.Warn("Materiais caíram abaixo do estoque mínimo.", fields)
	return nil
}
