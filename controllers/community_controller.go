// File: /controllers/community_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"communehub-api/models"
	"communehub-api/services"
	"communehub-api/utils"
)

type CommunityController struct {
	communityService *services.CommunityService
}

func NewCommunityController(communityService *services.CommunityService) *CommunityController {
	return &CommunityController{communityService: communityService}
}

func (cc *CommunityController) CreateCommunity(c *gin.Context) {
	var req models.CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	community, err := cc.communityService.Create(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

func (cc *CommunityController) GetCommunity(c *gin.Context) {
	community, err := cc.communityService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (cc *CommunityController) GetCommunityBySlug(c *gin.Context) {
	community, err := cc.communityService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (cc *CommunityController) UpdateCommunity(c *gin.Context) {
	var req models.UpdateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	community, err := cc.communityService.Update(c.Request.Context(), c.GetString("user_id"), c.Param("id"), req)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (cc *CommunityController) DeleteCommunity(c *gin.Context) {
	if err := cc.communityService.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, "Community deleted", nil)
}
