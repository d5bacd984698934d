package handler

import (
    "github.com/gin-gonic/gin/binding"
    "github.com/go-playground/validator/v10"

    "github.com/d60-Lab/feedgraph/internal/model"
)

// RegisterValidators 往 gin 的 binding 引擎注册枚举校验，
// 让非法的 kind/visibility 在进业务层之前就被 400 掉。
func RegisterValidators() {
    v, ok := binding.Validator.Engine().(*validator.Validate)
    if !ok {
        return
    }
    _ = v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
        return model.Visibility(fl.Field().String()).Valid()
    })
    _ = v.RegisterValidation("timelinekind", func(fl validator.FieldLevel) bool {
        switch model.TimelineKind(fl.Field().String()) {
        case model.TimelineKindPersonal, model.TimelineKindEntity, model.TimelineKindCommunal:
            return true
        }
        return false
    })
    _ = v.RegisterValidation("sharedest", func(fl validator.FieldLevel) bool {
        switch model.ShareDestKind(fl.Field().String()) {
        case model.ShareDestPersonal, model.ShareDestEntity, model.ShareDestCommunal, model.ShareDestExternal:
            return true
        }
        return false
    })
}
