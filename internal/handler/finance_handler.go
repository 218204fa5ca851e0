package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/randal-web/administrador-de-finanzas/internal/domain"
	"github.com/randal-web/administrador-de-finanzas/internal/service"
)

// deleteHandler serves the DELETE /v1/me/{resource}/{id} routes.
func deleteHandler(name string, del func(ctx context.Context, userID, id string) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/me/"+name+"/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("resource.id", id))

		if err := del(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "deleted", ID: id})
	}
}

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/transactions")
		defer span.End()

		txs, err := svc.ListTransactions(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	}
}

func addTransactionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/transactions")
		defer span.End()

		var req domain.NewTransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tx, err := svc.AddTransaction(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func deleteTransactionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return deleteHandler("transactions", svc.DeleteTransaction, logger)
}

// ============================================================
// Subscriptions
// ============================================================

func listSubscriptionsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/subscriptions")
		defer span.End()

		board, err := svc.ListSubscriptions(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func addSubscriptionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/subscriptions")
		defer span.End()

		var req domain.NewSubscriptionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		sub, err := svc.AddSubscription(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func deleteSubscriptionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return deleteHandler("subscriptions", svc.DeleteSubscription, logger)
}

func paySubscriptionHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/subscriptions/{id}/pay")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("subscription.id", id))

		var req domain.PaymentRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		view, err := svc.PaySubscription(ctx, UserIDFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ============================================================
// Debts
// ============================================================

func listDebtsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/debts")
		defer span.End()

		debts, err := svc.ListDebts(ctx, UserIDFromContext(ctx), r.URL.Query().Get("month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, debts)
	}
}

func addDebtHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/debts")
		defer span.End()

		var req domain.NewDebtRequest
		if !decodeBody(w, r, &req) {
			return
		}
		debt, err := svc.AddDebt(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, debt)
	}
}

func deleteDebtHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return deleteHandler("debts", svc.DeleteDebt, logger)
}

func payDebtHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/debts/{id}/pay")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("debt.id", id))

		var req domain.PaymentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		debt, err := svc.PayDebt(ctx, UserIDFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, debt)
	}
}

func scheduleDebtHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/debts/{id}/schedule")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("debt.id", id))

		var req domain.ScheduleDebtRequest
		if !decodeBody(w, r, &req) {
			return
		}
		debt, err := svc.ScheduleDebtPayment(ctx, UserIDFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, debt)
	}
}

// ============================================================
// Goals
// ============================================================

func listGoalsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/goals")
		defer span.End()

		goals, err := svc.ListGoals(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func addGoalHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/goals")
		defer span.End()

		var req domain.NewGoalRequest
		if !decodeBody(w, r, &req) {
			return
		}
		goal, err := svc.AddGoal(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, goal)
	}
}

func deleteGoalHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return deleteHandler("goals", svc.DeleteGoal, logger)
}

func contributeHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/goals/{id}/contribute")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("goal.id", id))

		var req domain.ContributionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		goal, err := svc.ContributeToGoal(ctx, UserIDFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goal)
	}
}

// ============================================================
// Expected income
// ============================================================

func listIncomeHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/income")
		defer span.End()

		income, err := svc.ListExpectedIncome(ctx, UserIDFromContext(ctx), r.URL.Query().Get("month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, income)
	}
}

func addIncomeHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/me/income")
		defer span.End()

		var req domain.NewIncomeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		inc, err := svc.AddExpectedIncome(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, inc)
	}
}

func deleteIncomeHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return deleteHandler("income", svc.DeleteExpectedIncome, logger)
}
