package routes

import (
	"net/http"

	"guardiao/app"
	"guardiao/controllers"
	"guardiao/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	oc := controllers.GetOperatorController(s)
	loanCtl := controllers.NewLoanController(s)
	matCtl := controllers.NewMaterialController(s)
	clientCtl := controllers.NewClientController(s)
	catCtl := controllers.NewCatalogController(s)
	repCtl := controllers.NewReportController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.AppSess, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, a.Config.SeenThrottle)
	reader := app.MinLevel(models.LevelReader)
	custodian := app.MinLevel(models.LevelCustodian)
	supervisor := app.MinLevel(models.LevelSupervisor)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ------------------------------
	// 登录（公开 + 受保护）
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", s.Login)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.GET("/whoami", s.WhoAmI)
		authed.POST("/logout", s.Logout)
	}

	api := r.Group("/api", authMW, seenMW, app.ValidIDParam("id"))

	// ------------------------------
	// 级别 1：战备快照与报告归档
	// ------------------------------
	lvl1 := api.Group("", reader)
	{
		lvl1.GET("/readiness", repCtl.Snapshot)
		lvl1.GET("/readiness/export", repCtl.ExportSnapshot)
		lvl1.GET("/reports", repCtl.ListReports)
		lvl1.GET("/reports/archive", repCtl.Years)
		lvl1.GET("/reports/archive/:year", repCtl.Months)
		lvl1.GET("/reports/archive/:year/:month", repCtl.InMonth)
		lvl1.GET("/reports/:id", repCtl.GetReport)
		lvl1.GET("/reports/:id/export", repCtl.ExportReport)
	}

	// ------------------------------
	// 级别 2：借用、查询、装备箱、签署人
	// ------------------------------
	lvl2 := api.Group("", custodian)
	{
		lvl2.POST("/loans", loanCtl.CreateLoan)
		lvl2.GET("/loans", loanCtl.ListLoans)
		lvl2.GET("/loans/:id", loanCtl.GetLoan)
		lvl2.POST("/loans/:id/status", loanCtl.ChangeStatus)

		lvl2.GET("/clients", clientCtl.ListClients)
		lvl2.GET("/clients/search", clientCtl.SearchActive)
		lvl2.GET("/clients/:id", clientCtl.GetClient)

		lvl2.GET("/categories", catCtl.ListCategories)
		lvl2.GET("/materials", matCtl.ListMaterials)
		lvl2.GET("/materials/loanable", matCtl.SearchLoanable)
		lvl2.GET("/materials/:id", matCtl.GetMaterial)

		lvl2.GET("/cases", catCtl.ListCases)
		lvl2.POST("/cases", catCtl.CreateCase)
		lvl2.PUT("/cases/:id", catCtl.UpdateCase)
		lvl2.DELETE("/cases/:id", catCtl.DeleteCase)

		lvl2.GET("/signers", catCtl.ListSigners)
		lvl2.POST("/signers", catCtl.CreateSigner)
		lvl2.PUT("/signers/:id", catCtl.RenameSigner)
		lvl2.GET("/signer-roles", catCtl.ListSignerRoles)
		lvl2.POST("/signer-roles", catCtl.CreateSignerRole)
		lvl2.PUT("/signer-roles/:id", catCtl.RenameSignerRole)

		lvl2.POST("/reports", repCtl.CreateReport)
	}

	// ------------------------------
	// 级别 3：删除与管理
	// ------------------------------
	lvl3 := api.Group("", supervisor)
	{
		lvl3.DELETE("/loans/:id", loanCtl.DeleteLoan)

		lvl3.POST("/clients", clientCtl.CreateClient)
		lvl3.PUT("/clients/:id", clientCtl.UpdateClient)
		lvl3.POST("/clients/:id/toggle", clientCtl.ToggleClient)
		lvl3.DELETE("/clients/:id", clientCtl.DeleteClient)

		lvl3.POST("/categories", catCtl.CreateCategory)
		lvl3.PUT("/categories/:id", catCtl.UpdateCategory)
		lvl3.DELETE("/categories/:id", catCtl.DeleteCategory)

		lvl3.POST("/materials", matCtl.RegisterMaterial)
		lvl3.PUT("/materials/:id", matCtl.UpdateMaterial)
		lvl3.POST("/materials/:id/reconcile", matCtl.Reconcile)
		lvl3.DELETE("/materials/:id", matCtl.DeleteMaterial)

		lvl3.DELETE("/signers/:id", catCtl.DeleteSigner)
		lvl3.DELETE("/signer-roles/:id", catCtl.DeleteSignerRole)
		lvl3.DELETE("/reports/:id", repCtl.DeleteReport)

		lvl3.GET("/operators", oc.ListOperators)
		lvl3.GET("/operators/:id", oc.GetOperator)
		lvl3.POST("/operators", oc.CreateOperator)
		lvl3.PUT("/operators/:id", oc.UpdateOperator)
		lvl3.DELETE("/operators/:id", oc.DeleteOperator)
	}
}
