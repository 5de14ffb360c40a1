// File: /controllers/membership_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"communehub-api/models"
	"communehub-api/services"
	"communehub-api/utils"
)

type MembershipController struct {
	membershipService *services.MembershipService
}

func NewMembershipController(membershipService *services.MembershipService) *MembershipController {
	return &MembershipController{membershipService: membershipService}
}

func (mc *MembershipController) Join(c *gin.Context) {
	membership, err := mc.membershipService.Join(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, membership)
}

// CompletePayment is the callback hit after the external payment flow
// succeeds; it creates the paid membership.
func (mc *MembershipController) CompletePayment(c *gin.Context) {
	membership, err := mc.membershipService.GrantPaidMembership(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, membership)
}

func (mc *MembershipController) Leave(c *gin.Context) {
	if err := mc.membershipService.Leave(c.Request.Context(), c.Param("id"), c.GetString("user_id")); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, "Left community", nil)
}

func (mc *MembershipController) Approve(c *gin.Context) {
	membership, err := mc.membershipService.Approve(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) Reject(c *gin.Context) {
	membership, err := mc.membershipService.Reject(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) AssignRole(c *gin.Context) {
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	membership, err := mc.membershipService.AssignRole(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"), req.Role)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) RemoveRole(c *gin.Context) {
	membership, err := mc.membershipService.RemoveRole(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) Ban(c *gin.Context) {
	var req models.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	membership, err := mc.membershipService.Ban(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"), req.Reason)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) Unban(c *gin.Context) {
	membership, err := mc.membershipService.Unban(c.Request.Context(),
		c.Param("id"), c.Param("membershipId"), c.GetString("user_id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

func (mc *MembershipController) ListMembers(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "limit must be a number")
			return
		}
		limit = parsed
	}

	conn, err := mc.membershipService.ListMembers(c.Request.Context(),
		c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}
